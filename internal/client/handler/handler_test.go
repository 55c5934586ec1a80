package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pawnshop/internal/access"
	"pawnshop/internal/client/handler/mocks"
	"pawnshop/internal/client/models"
	"pawnshop/internal/platform/logger"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/testutil"
)

type allowAll struct{}

func (allowAll) Allow(access.Resource, access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard()).Register(s.router, allowAll{})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validBody() map[string]string {
	return map[string]string{
		"firstName":         "John",
		"lastName":          "Doe",
		"middleName":        "Robert",
		"passportNumber":    "123456",
		"passportSeries":    "AB",
		"passportIssueDate": "2020-01-01",
	}
}

func storedClient() *models.Client {
	now := time.Date(2024, 2, 24, 0, 54, 35, 0, time.UTC)
	return &models.Client{
		ID: id.NewClientID(),
		Identity: models.Identity{
			FirstName:         "John",
			LastName:          "Doe",
			MiddleName:        "Robert",
			PassportNumber:    "123456",
			PassportSeries:    "AB",
			PassportIssueDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("returns 201 with the stored client", func() {
		c := storedClient()
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, identity models.Identity) (*models.Client, error) {
				s.Equal("123456", identity.PassportNumber)
				s.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), identity.PassportIssueDate)
				return c, nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", validBody()))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		env := testutil.DecodeEnvelope(s.T(), rr)
		s.True(env.Success)
		got := testutil.DecodeData[ClientResponse](s.T(), env)
		s.Equal(c.ID.String(), got.ID)
		s.Equal("2020-01-01", got.PassportIssueDate)
	})

	s.Run("malformed JSON is a bad request", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/clients", "{"))
		testutil.AssertFailure(s.T(), rr, http.StatusBadRequest, "invalid JSON body")
	})

	s.Run("missing fields are listed together", func() {
		body := validBody()
		delete(body, "middleName")
		delete(body, "passportIssueDate")

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", body))

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		env := testutil.DecodeEnvelope(s.T(), rr)
		s.Equal("All fields are required", env.Message)
		testutil.AssertFieldErrors(s.T(), env, "middleName", "passportIssueDate")
	})

	s.Run("unparseable issue date is rejected", func() {
		body := validBody()
		body["passportIssueDate"] = "first of may"

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", body))

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("duplicate passport is a 400", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicate, "Client already exists"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", validBody()))

		testutil.AssertFailure(s.T(), rr, http.StatusBadRequest, "Client already exists")
	})

	s.Run("internal failures hide their cause", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "connection reset by peer"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/clients", validBody()))

		testutil.AssertFailure(s.T(), rr, http.StatusInternalServerError, "Internal Server Error")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the client", func() {
		c := storedClient()
		s.service.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients/"+c.ID.String()))

		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.DecodeData[ClientResponse](s.T(), testutil.DecodeEnvelope(s.T(), rr))
		s.Equal("Doe", got.LastName)
	})

	s.Run("malformed id is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients/not-a-uuid"))
		testutil.AssertFailure(s.T(), rr, http.StatusNotFound, "Client not found")
	})

	s.Run("unknown id is not found", func() {
		clientID := id.NewClientID()
		s.service.EXPECT().Get(gomock.Any(), clientID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Client not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients/"+clientID.String()))

		testutil.AssertFailure(s.T(), rr, http.StatusNotFound, "Client not found")
	})
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("replaces the identity", func() {
		c := storedClient()
		body := validBody()
		body["lastName"] = "Smith"
		s.service.EXPECT().Update(gomock.Any(), c.ID, gomock.Any()).DoAndReturn(
			func(_ any, _ id.ClientID, identity models.Identity) (*models.Client, error) {
				s.Equal("Smith", identity.LastName)
				c.Identity = identity
				return c, nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/clients/"+c.ID.String(), body))

		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.DecodeData[ClientResponse](s.T(), testutil.DecodeEnvelope(s.T(), rr))
		s.Equal("Smith", got.LastName)
	})

	s.Run("partial body is rejected before the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut,
			"/clients/"+id.NewClientID().String(), map[string]string{"lastName": "Smith"}))

		testutil.AssertFailure(s.T(), rr, http.StatusBadRequest, "All fields are required")
	})
}

func (s *HandlerSuite) TestDelete() {
	s.Run("confirms deletion", func() {
		clientID := id.NewClientID()
		s.service.EXPECT().Delete(gomock.Any(), clientID).Return(nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/clients/"+clientID.String()))

		testutil.AssertStatusOK(s.T(), rr)
		env := testutil.DecodeEnvelope(s.T(), rr)
		s.True(env.Success)
		s.Equal("Client deleted successfully", env.Message)
	})

	s.Run("referenced client is a conflict", func() {
		clientID := id.NewClientID()
		s.service.EXPECT().Delete(gomock.Any(), clientID).
			Return(dErrors.New(dErrors.CodeConflict, "Client is referenced by pawn transactions"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/clients/"+clientID.String()))

		testutil.AssertFailure(s.T(), rr, http.StatusConflict, "Client is referenced by pawn transactions")
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("returns items with pagination", func() {
		c := storedClient()
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, p query.Params) (query.Page[*models.Client], error) {
				s.Equal(2, p.Page)
				s.Equal(5, p.Limit)
				s.Equal("lastName", p.SortBy)
				s.Equal("doe", p.Filter("search"))
				return query.NewPage([]*models.Client{c}, 6, p), nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/clients?page=2&limit=5&sortBy=lastName&search=doe"))

		testutil.AssertStatusOK(s.T(), rr)
		env := testutil.DecodeEnvelope(s.T(), rr)
		items := testutil.DecodeData[[]ClientResponse](s.T(), env)
		s.Len(items, 1)
		s.JSONEq(`{"total":6,"currentPage":2,"totalPages":2,"hasNext":false,"hasPrev":true}`, string(env.Pagination))
	})

	s.Run("invalid limit is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients?limit=0"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
