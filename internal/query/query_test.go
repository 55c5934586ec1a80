package query

import (
	"cmp"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "pawnshop/pkg/domain-errors"
)

var testSpec = Spec{
	SortFields:  []string{"name", "createdAt"},
	DefaultSort: "createdAt",
	Filters:     []string{"search"},
}

type item struct {
	id      int
	name    string
	created int
}

var itemFields = map[string]Comparator[item]{
	"name":      func(a, b item) int { return cmp.Compare(a.name, b.name) },
	"createdAt": func(a, b item) int { return cmp.Compare(a.created, b.created) },
}

func byID(a, b item) int { return cmp.Compare(a.id, b.id) }

type QuerySuite struct {
	suite.Suite
}

func TestQuerySuite(t *testing.T) {
	suite.Run(t, new(QuerySuite))
}

func (s *QuerySuite) TestParse() {
	s.Run("defaults", func() {
		p, err := Parse(url.Values{}, testSpec)
		s.Require().NoError(err)
		s.Equal(1, p.Page)
		s.Equal(10, p.Limit)
		s.Equal("createdAt", p.SortBy)
		s.Equal(Desc, p.SortOrder)
	})

	s.Run("explicit values", func() {
		p, err := Parse(url.Values{
			"page":      {"3"},
			"limit":     {"25"},
			"sortBy":    {"name"},
			"sortOrder": {"ASC"},
			"search":    {"  ivan "},
			"ignored":   {"x"},
		}, testSpec)
		s.Require().NoError(err)
		s.Equal(3, p.Page)
		s.Equal(25, p.Limit)
		s.Equal("name", p.SortBy)
		s.Equal(Asc, p.SortOrder)
		s.Equal("ivan", p.Filter("search"))
		s.Empty(p.Filter("ignored"))
		s.Equal(50, p.Offset())
	})

	s.Run("invalid values are all reported", func() {
		_, err := Parse(url.Values{
			"page":      {"0"},
			"limit":     {"101"},
			"sortBy":    {"password"},
			"sortOrder": {"sideways"},
		}, testSpec)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Len(de.Fields, 4)
	})

	s.Run("non numeric page", func() {
		_, err := Parse(url.Values{"page": {"two"}}, testSpec)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *QuerySuite) TestPaginate() {
	s.Run("middle page", func() {
		got := Paginate(25, Params{Page: 2, Limit: 10})
		s.Equal(Pagination{Total: 25, CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, got)
	})

	s.Run("empty collection", func() {
		got := Paginate(0, Params{Page: 1, Limit: 10})
		s.Equal(Pagination{Total: 0, CurrentPage: 1, TotalPages: 0}, got)
	})

	s.Run("last page", func() {
		got := Paginate(20, Params{Page: 2, Limit: 10})
		s.False(got.HasNext)
		s.True(got.HasPrev)
	})
}

func (s *QuerySuite) TestApply() {
	items := make([]item, 0, 25)
	for i := 1; i <= 25; i++ {
		items = append(items, item{id: i, name: "item", created: i})
	}

	s.Run("second page of ascending sort", func() {
		p := Params{Page: 2, Limit: 10, SortBy: "createdAt", SortOrder: Asc}
		page := Apply(items, nil, itemFields, byID, p)

		s.Require().Len(page.Items, 10)
		s.Equal(11, page.Items[0].id)
		s.Equal(20, page.Items[9].id)
		s.Equal(Pagination{Total: 25, CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, page.Pagination)
	})

	s.Run("page past the end is empty", func() {
		p := Params{Page: 4, Limit: 10, SortBy: "createdAt", SortOrder: Asc}
		page := Apply(items, nil, itemFields, byID, p)
		s.NotNil(page.Items)
		s.Empty(page.Items)
		s.Equal(25, page.Pagination.Total)
	})

	s.Run("filter applies before pagination", func() {
		p := Params{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: Desc}
		page := Apply(items, func(it item) bool { return it.id%2 == 0 }, itemFields, byID, p)
		s.Equal(12, page.Pagination.Total)
		s.Equal(24, page.Items[0].id)
	})
}

func TestSortStableTiebreakIsAscending(t *testing.T) {
	items := []item{
		{id: 3, name: "b"},
		{id: 1, name: "b"},
		{id: 2, name: "a"},
	}
	SortStable(items, itemFields, Params{SortBy: "name", SortOrder: Desc}, byID)

	ids := []int{items[0].id, items[1].id, items[2].id}
	assert.Equal(t, []int{1, 3, 2}, ids)
}

func TestOrderClause(t *testing.T) {
	cols := map[string]string{"createdAt": "created_at"}

	got := OrderClause(Params{SortBy: "createdAt", SortOrder: Desc}, cols, "id")
	assert.Equal(t, "ORDER BY created_at DESC, id ASC", got)

	got = OrderClause(Params{SortBy: "createdAt", SortOrder: Asc}, cols, "c.id")
	assert.Equal(t, "ORDER BY created_at ASC, c.id ASC", got)

	got = OrderClause(Params{SortBy: "unknown"}, cols, "id")
	assert.Equal(t, "ORDER BY id ASC", got)
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, `%50\%\_off%`, LikePattern("50%_off"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("IVA", "x", "Ivanov"))
	assert.False(t, ContainsFold("petr", "Ivanov"))
}
