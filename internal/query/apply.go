package query

import (
	"fmt"
	"slices"
	"strings"
)

// Comparator orders two items on a single field.
type Comparator[T any] func(a, b T) int

// SortStable orders items by p.SortBy in p.SortOrder. Ties always fall back to
// tiebreak in ascending order, whatever the requested direction.
func SortStable[T any](items []T, fields map[string]Comparator[T], p Params, tiebreak Comparator[T]) {
	byField := fields[p.SortBy]
	slices.SortStableFunc(items, func(a, b T) int {
		if byField != nil {
			c := byField(a, b)
			if p.SortOrder == Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return tiebreak(a, b)
	})
}

// Window returns the slice of items belonging to the requested page.
func Window[T any](items []T, p Params) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

// Apply filters, sorts and windows an in-memory collection.
func Apply[T any](items []T, keep func(T) bool, fields map[string]Comparator[T], tiebreak Comparator[T], p Params) Page[T] {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if keep == nil || keep(item) {
			matched = append(matched, item)
		}
	}
	SortStable(matched, fields, p, tiebreak)
	return NewPage(Window(matched, p), len(matched), p)
}

// ContainsFold reports whether any of the haystacks contains needle,
// ignoring case.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// OrderClause renders ORDER BY for SQL stores. columns maps API sort names to
// trusted column expressions; idColumn is the ascending tiebreak.
func OrderClause(p Params, columns map[string]string, idColumn string) string {
	col, ok := columns[p.SortBy]
	if !ok {
		return fmt.Sprintf("ORDER BY %s ASC", idColumn)
	}
	dir := "DESC"
	if p.SortOrder == Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, %s ASC", col, dir, idColumn)
}

// LikePattern escapes s for use inside an ILIKE '%...%' pattern.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
