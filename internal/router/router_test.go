package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
)

// APITestSuite drives the whole HTTP API against an in-memory database.
type APITestSuite struct {
	suite.Suite
	db    *database.DB
	e     *echo.Echo
	creds *service.Credentials
}

func (s *APITestSuite) SetupTest() {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate(ctx, db))
	s.db = db

	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}
	users := repository.NewUserRepo(db)
	resources := repository.NewResourceRepo(db)
	s.creds, err = service.NewCredentials(users, cfg.BcryptCost)
	require.NoError(s.T(), err)
	engine := service.NewBookingService(repository.NewTxManager(db), users, resources,
		repository.NewBookingRepo(db), repository.NewOutboxRepo(db), config.Booking{MaxAttempts: 3})

	s.e = echo.New()
	Setup(s.e, cfg, Handlers{
		Auth:     handler.NewAuthHandler(cfg, s.creds, repository.NewTokenRepo(db)),
		Resource: handler.NewResourceHandler(resources),
		Booking:  handler.NewBookingHandler(engine),
		Admin:    handler.NewAdminHandler(resources),
		DB:       db,
	})
}

func (s *APITestSuite) TearDownTest() {
	s.db.Close()
}

func (s *APITestSuite) call(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload string
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(s.T(), err)
		payload = string(bs)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](s *APITestSuite, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	User   model.User `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (s *APITestSuite) signup(name string) authBody {
	rec := s.call(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"username": name, "email": name + "@example.com", "password": "secret",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](s, rec)
}

func (s *APITestSuite) adminToken() string {
	_, err := s.creds.RegisterWithRole(context.Background(), "root", "root@example.com", "secret", model.RoleAdmin)
	require.NoError(s.T(), err)
	rec := s.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "root@example.com", "password": "secret"})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	return decode[authBody](s, rec).Access.Token
}

func (s *APITestSuite) createFlight(admin, code string, capacity int) model.Resource {
	dep := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := s.call(http.MethodPost, "/v1/admin/resources", admin, echo.Map{
		"kind": "FLIGHT", "code": code, "origin": "Mumbai", "destination": "Delhi",
		"starts_at": dep, "capacity": capacity, "price_cents": 19999,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Resource](s, rec)
}

func (s *APITestSuite) TestHealthAndMetrics() {
	rec := s.call(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", rec.Body.String())

	s.Equal(http.StatusOK, s.call(http.MethodGet, "/readyz", "", nil).Code)

	rec = s.call(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "go_goroutines")
}

func (s *APITestSuite) TestAuthFlow() {
	a := s.signup("alice")
	s.Equal("alice", a.User.Username)
	s.Equal(model.RoleCustomer, a.User.Role)
	s.NotEmpty(a.Access.Token)

	rec := s.call(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"username": "other", "email": "ALICE@example.com", "password": "x",
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "alice@example.com", "password": "bad"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	rec = s.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ghost@example.com", "password": "secret"})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.call(http.MethodGet, "/v1/me", a.Access.Token, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("alice@example.com", decode[model.User](s, rec).Email)
	s.NotContains(rec.Body.String(), "password")

	rec = s.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": a.Refresh.Token})
	s.Require().Equal(http.StatusOK, rec.Code)
	rotated := decode[authBody](s, rec)
	s.NotEqual(a.Refresh.Token, rotated.Refresh.Token)

	rec = s.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": a.Refresh.Token})
	s.Equal(http.StatusUnauthorized, rec.Code, "old refresh token was revoked")

	rec = s.call(http.MethodPost, "/v1/auth/refresh-access", "", echo.Map{"refresh_token": rotated.Refresh.Token})
	s.Equal(http.StatusOK, rec.Code)

	s.Equal(http.StatusNoContent, s.call(http.MethodPost, "/v1/auth/logout", rotated.Access.Token, nil).Code)
	rec = s.call(http.MethodPost, "/v1/auth/refresh-access", "", echo.Map{"refresh_token": rotated.Refresh.Token})
	s.Equal(http.StatusUnauthorized, rec.Code, "logout with bearer revokes every session")

	s.Equal(http.StatusBadRequest, s.call(http.MethodPost, "/v1/auth/logout", "", nil).Code)
}

func (s *APITestSuite) TestBookingFlow() {
	admin := s.adminToken()
	flight := s.createFlight(admin, "AI101", 150)
	s.Equal(150, flight.CapacityRemaining)

	alice := s.signup("alice").Access.Token
	bob := s.signup("bob").Access.Token

	path := "/v1/resources/" + itoa(flight.ID) + "/bookings"
	s.Equal(http.StatusUnauthorized, s.call(http.MethodPost, path, "", nil).Code)

	rec := s.call(http.MethodPost, path, alice, nil, "Idempotency-Key", "k1")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[model.Booking](s, rec)
	s.Equal("A149", b.Assignment)
	s.Equal(model.BookingConfirmed, b.Status)

	rec = s.call(http.MethodPost, path, alice, nil, "Idempotency-Key", "k1")
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "already_booked")

	rec = s.call(http.MethodGet, "/v1/resources/"+itoa(flight.ID), "", nil)
	s.Equal(149, decode[model.Resource](s, rec).CapacityRemaining)

	rec = s.call(http.MethodGet, "/v1/my-bookings", alice, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"resource_code":"AI101"`)

	bookingPath := "/v1/bookings/" + itoa(b.ID)
	s.Equal(http.StatusForbidden, s.call(http.MethodGet, bookingPath, bob, nil).Code)
	s.Equal(http.StatusForbidden, s.call(http.MethodDelete, bookingPath, bob, nil).Code)
	s.Equal(http.StatusOK, s.call(http.MethodGet, bookingPath, alice, nil).Code)
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, "/v1/bookings/9999", alice, nil).Code)

	s.Equal(http.StatusNoContent, s.call(http.MethodDelete, bookingPath, alice, nil).Code)
	s.Equal(http.StatusNoContent, s.call(http.MethodDelete, bookingPath, alice, nil).Code, "idempotent cancel")

	rec = s.call(http.MethodGet, "/v1/admin/resources/"+itoa(flight.ID)+"/audit", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	audit := decode[model.CapacityAudit](s, rec)
	s.Equal(150, audit.CapacityRemaining)
	s.True(audit.Consistent)

	s.Equal(http.StatusNotFound, s.call(http.MethodPost, "/v1/resources/9999/bookings", alice, nil).Code)
	s.Equal(http.StatusBadRequest, s.call(http.MethodPost, "/v1/resources/abc/bookings", alice, nil).Code)
}

func (s *APITestSuite) TestNoCapacity() {
	admin := s.adminToken()
	flight := s.createFlight(admin, "TINY", 1)
	alice := s.signup("alice").Access.Token
	path := "/v1/resources/" + itoa(flight.ID) + "/bookings"

	s.Equal(http.StatusCreated, s.call(http.MethodPost, path, alice, nil).Code)
	rec := s.call(http.MethodPost, path, alice, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "no_capacity")
}

func (s *APITestSuite) TestAdminRoutes() {
	alice := s.signup("alice").Access.Token
	s.Equal(http.StatusForbidden, s.call(http.MethodPost, "/v1/admin/resources", alice, echo.Map{}).Code)

	admin := s.adminToken()
	s.createFlight(admin, "AI101", 10)

	rec := s.call(http.MethodPost, "/v1/admin/resources", admin, echo.Map{
		"kind": "FLIGHT", "code": "ai101", "origin": "A", "destination": "B", "capacity": 1,
	})
	s.Equal(http.StatusConflict, rec.Code, "codes are unique")

	rec = s.call(http.MethodPost, "/v1/admin/resources", admin, echo.Map{"kind": "BUS", "code": "X"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.call(http.MethodPost, "/v1/admin/resources", admin, echo.Map{
		"kind": "PLACE", "code": "GOA-01", "name": "Seaview", "location": "Goa", "capacity": 4,
	})
	s.Equal(http.StatusCreated, rec.Code)

	rec = s.call(http.MethodGet, "/v1/resources?kind=place", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	page := decode[struct {
		Data  []model.Resource `json:"data"`
		Total int              `json:"total"`
	}](s, rec)
	s.Equal(1, page.Total)
	s.Equal("GOA-01", page.Data[0].Code)

	s.Equal(http.StatusBadRequest, s.call(http.MethodGet, "/v1/resources?kind=bus", "", nil).Code)
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
