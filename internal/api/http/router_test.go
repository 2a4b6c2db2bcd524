package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	api "carrental-backend/internal/api/http"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/security"
	"carrental-backend/internal/service"
	"carrental-backend/internal/storage"
)

type testServer struct {
	router  *mux.Router
	tokens  security.TokenManager
	auth    *MockAuthService
	rentals *MockRentalService
	ledger  *MockLedgerService
	images  *MockImageService
}

func newTestServer(t *testing.T, pingErr error) *testServer {
	t.Helper()
	s := &testServer{
		tokens:  security.NewTokenManager("test-secret", time.Hour, 24*time.Hour),
		auth:    new(MockAuthService),
		rentals: new(MockRentalService),
		ledger:  new(MockLedgerService),
		images:  new(MockImageService),
	}
	s.router = api.NewRouter(api.Handlers{
		Auth:      api.NewAuthHandler(s.auth),
		Users:     api.NewUserHandler(nil),
		Vehicles:  api.NewVehicleHandler(nil, s.images),
		Locations: api.NewLocationHandler(nil),
		Rentals:   api.NewRentalHandler(s.rentals),
		Account:   api.NewAccountHandler(s.ledger, nil, nil),
		Admin:     api.NewAdminHandler(nil, nil),
	}, api.NewAuthenticator(s.tokens, s.auth), fakePinger{err: pingErr})
	return s
}

// token issues an access token. Staff accounts are also stubbed in the user
// lookup as active with the same role.
func (s *testServer) token(t *testing.T, userID int32, role domain.Role) string {
	t.Helper()
	tok, err := s.tokens.GenerateAccessToken(userID, "user@example.com", role)
	require.NoError(t, err)
	if role != domain.RoleCustomer {
		s.auth.On("GetProfile", mock.Anything, userID).Return(&domain.User{ID: userID, Role: role}, nil).Maybe()
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Run("Database reachable", func(t *testing.T) {
		rec := newTestServer(t, nil).do(t, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("Database down", func(t *testing.T) {
		rec := newTestServer(t, errors.New("connection refused")).do(t, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		s := newTestServer(t, nil)
		user := &domain.User{ID: 3, Email: "anna@example.com", Role: domain.RoleCustomer}
		s.auth.On("Login", mock.Anything, "anna@example.com", "secret123").Return(user, "access", "refresh", nil)

		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "anna@example.com", "password": "secret123"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "access", body["access_token"])
		assert.Equal(t, "Bearer", body["token_type"])
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("Invalid credentials", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.auth.On("Login", mock.Anything, "anna@example.com", "wrong").Return(nil, "", "", domain.ErrInvalidCredentials)

		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "anna@example.com", "password": "wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
	})

	t.Run("Unknown field rejected", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.c", "role": "admin"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", decodeError(t, rec).Type)
	})
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Missing token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/me/balance", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Garbage token on public route", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/health", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Refresh token cannot call the API", func(t *testing.T) {
		refresh, err := s.tokens.GenerateRefreshToken(3, "user@example.com")
		require.NoError(t, err)
		rec := s.do(t, http.MethodGet, "/api/v1/me/balance", refresh, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Customer on admin route", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/admin/stats", s.token(t, 3, domain.RoleCustomer), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec).Type)
	})

	t.Run("Blocked employee loses access before the token expires", func(t *testing.T) {
		s := newTestServer(t, nil)
		tok, err := s.tokens.GenerateAccessToken(2, "staff@example.com", domain.RoleEmployee)
		require.NoError(t, err)
		s.auth.On("GetProfile", mock.Anything, int32(2)).Return(&domain.User{ID: 2, Role: domain.RoleEmployee, Blocked: true}, nil)

		rec := s.do(t, http.MethodGet, "/api/v1/fleet/returns", tok, nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "account_blocked", decodeError(t, rec).Type)
		s.rentals.AssertNotCalled(t, "ListRentals", mock.Anything, mock.Anything)
	})

	t.Run("Demoted employee is judged by the current role", func(t *testing.T) {
		s := newTestServer(t, nil)
		tok, err := s.tokens.GenerateAccessToken(2, "staff@example.com", domain.RoleEmployee)
		require.NoError(t, err)
		s.auth.On("GetProfile", mock.Anything, int32(2)).Return(&domain.User{ID: 2, Role: domain.RoleCustomer}, nil)

		rec := s.do(t, http.MethodGet, "/api/v1/fleet/returns", tok, nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec).Type)
	})

	t.Run("Deleted staff account", func(t *testing.T) {
		s := newTestServer(t, nil)
		tok, err := s.tokens.GenerateAccessToken(2, "staff@example.com", domain.RoleAdmin)
		require.NoError(t, err)
		s.auth.On("GetProfile", mock.Anything, int32(2)).Return(nil, domain.ErrNotFound)

		rec := s.do(t, http.MethodGet, "/api/v1/admin/stats", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Customer tokens skip the lookup", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.do(t, http.MethodGet, "/api/v1/admin/stats", s.token(t, 3, domain.RoleCustomer), nil)
		s.auth.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("Customer cannot review returns", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/fleet/rentals/9/approve-return", s.token(t, 3, domain.RoleCustomer), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		s.rentals.AssertNotCalled(t, "Terminate", mock.Anything, mock.Anything)
	})
}

func TestRentalRoutes(t *testing.T) {
	start := time.Date(2030, 6, 10, 10, 0, 0, 0, time.UTC)
	booking := map[string]any{
		"vehicle_id":              7,
		"origin_location_id":      1,
		"destination_location_id": 2,
		"start_at":                start,
		"planned_end_at":          start.Add(72 * time.Hour),
	}

	t.Run("Customer books for themselves", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ConfirmBooking", mock.Anything, mock.MatchedBy(func(req service.BookingRequest) bool {
			return req.CustomerID == 3 && req.CreatedBy == 3 && req.VehicleID == 7 && req.StartAt.Equal(start) && !req.Now.IsZero()
		})).Return(&domain.Rental{ID: 100, Status: domain.RentalStatusReserved}, nil)

		rec := s.do(t, http.MethodPost, "/api/v1/rentals", s.token(t, 3, domain.RoleCustomer), booking)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var rental domain.Rental
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rental))
		assert.Equal(t, int32(100), rental.ID)
		s.rentals.AssertExpectations(t)
	})

	t.Run("Insufficient balance", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ConfirmBooking", mock.Anything, mock.Anything).Return(nil, domain.ErrInsufficientBalance)

		rec := s.do(t, http.MethodPost, "/api/v1/rentals", s.token(t, 3, domain.RoleCustomer), booking)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "insufficient_balance", decodeError(t, rec).Type)
	})

	t.Run("Validation details", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ConfirmBooking", mock.Anything, mock.Anything).
			Return(nil, domain.NewValidationError("planned_end_at must be after start_at"))

		rec := s.do(t, http.MethodPost, "/api/v1/rentals", s.token(t, 3, domain.RoleCustomer), booking)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "validation_error", body.Type)
		assert.Equal(t, []string{"planned_end_at must be after start_at"}, body.Details)
	})

	t.Run("Admin books on behalf of a customer", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ConfirmBooking", mock.Anything, mock.MatchedBy(func(req service.BookingRequest) bool {
			return req.CustomerID == 3 && req.CreatedBy == 1
		})).Return(&domain.Rental{ID: 101}, nil)

		body := map[string]any{"customer_id": 3}
		for k, v := range booking {
			body[k] = v
		}
		rec := s.do(t, http.MethodPost, "/api/v1/admin/rentals", s.token(t, 1, domain.RoleAdmin), body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		s.rentals.AssertExpectations(t)
	})

	t.Run("Customer cancel is not privileged", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("Terminate", mock.Anything, mock.MatchedBy(func(cmd service.TerminateCommand) bool {
			return cmd.RentalID == 100 && cmd.ActorID == 3 && !cmd.Privileged &&
				cmd.Mode == domain.TerminationCancel && cmd.Reason == "plans changed"
		})).Return(&domain.Rental{ID: 100, Status: domain.RentalStatusCancelled, RefundAmount: decimal.RequireFromString("465")}, nil)

		rec := s.do(t, http.MethodPost, "/api/v1/rentals/100/cancel", s.token(t, 3, domain.RoleCustomer), map[string]string{"reason": "plans changed"})

		assert.Equal(t, http.StatusOK, rec.Code)
		s.rentals.AssertExpectations(t)
	})

	t.Run("Cancel without body", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("Terminate", mock.Anything, mock.MatchedBy(func(cmd service.TerminateCommand) bool {
			return cmd.Mode == domain.TerminationCancel && cmd.Reason == ""
		})).Return(nil, domain.ErrInvalidTransition)

		rec := s.do(t, http.MethodPost, "/api/v1/rentals/100/cancel", s.token(t, 3, domain.RoleCustomer), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_transition", decodeError(t, rec).Type)
	})

	t.Run("Employee rejects a return", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("Terminate", mock.Anything, mock.MatchedBy(func(cmd service.TerminateCommand) bool {
			return cmd.Privileged && cmd.ActorID == 2 && cmd.Mode == domain.TerminationRejectReturn && cmd.Reason == "scratched door"
		})).Return(&domain.Rental{ID: 9, Status: domain.RentalStatusActive}, nil)

		rec := s.do(t, http.MethodPost, "/api/v1/fleet/rentals/9/reject-return", s.token(t, 2, domain.RoleEmployee), map[string]string{"reason": "scratched door"})

		assert.Equal(t, http.StatusOK, rec.Code)
		s.rentals.AssertExpectations(t)
	})

	t.Run("Get uses staff privilege", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("GetRental", mock.Anything, int32(2), true, int32(100)).Return(&domain.Rental{ID: 100}, nil)
		s.rentals.On("GetRental", mock.Anything, int32(4), false, int32(100)).Return(nil, domain.ErrForbidden)

		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/rentals/100", s.token(t, 2, domain.RoleEmployee), nil).Code)
		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/rentals/100", s.token(t, 4, domain.RoleCustomer), nil).Code)
	})

	t.Run("Bad id", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := s.do(t, http.MethodGet, "/api/v1/rentals/abc", s.token(t, 3, domain.RoleCustomer), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Own rentals with status filter", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ListRentals", mock.Anything, domain.RentalFilter{CustomerID: 3, Status: domain.RentalStatusActive, Page: 1, PageSize: 20}).
			Return([]domain.Rental{{ID: 100}}, int32(1), nil)

		rec := s.do(t, http.MethodGet, "/api/v1/rentals?status=active", s.token(t, 3, domain.RoleCustomer), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var page api.Page[domain.Rental]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, int32(1), page.Total)
		require.Len(t, page.Items, 1)
	})

	t.Run("Pending returns queue", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.rentals.On("ListRentals", mock.Anything, domain.RentalFilter{Status: domain.RentalStatusPendingReturn, Page: 1, PageSize: 20}).
			Return([]domain.Rental{}, int32(0), nil)

		rec := s.do(t, http.MethodGet, "/api/v1/fleet/returns", s.token(t, 2, domain.RoleEmployee), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"items":[],"total":0,"page":1,"page_size":20}`, rec.Body.String())
	})
}

func TestAccountRoutes(t *testing.T) {
	t.Run("Transactions paging", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.ledger.On("ListEntries", mock.Anything, int32(3), int32(2), int32(5)).
			Return([]domain.LedgerEntry{{ID: 1, Type: domain.EntryTypeTopUp}}, int32(6), nil)

		rec := s.do(t, http.MethodGet, "/api/v1/me/transactions?page=2&page_size=5", s.token(t, 3, domain.RoleCustomer), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		s.ledger.AssertExpectations(t)
	})

	t.Run("Top-up", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.ledger.On("TopUp", mock.Anything, int32(3), mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("150.50"))
		})).Return(&domain.LedgerEntry{ID: 9, Type: domain.EntryTypeTopUp}, nil)

		rec := s.do(t, http.MethodPost, "/api/v1/me/top-ups", s.token(t, 3, domain.RoleCustomer), map[string]string{"amount": "150.50"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		s.ledger.AssertExpectations(t)
	})

	t.Run("Balance", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.ledger.On("GetBalance", mock.Anything, int32(3)).Return(decimal.RequireFromString("35"), nil)

		rec := s.do(t, http.MethodGet, "/api/v1/me/balance", s.token(t, 3, domain.RoleCustomer), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"balance":"35"}`, rec.Body.String())
	})
}

func TestImageRoutes(t *testing.T) {
	t.Run("Download", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.images.On("OpenImage", mock.Anything, "abc.png").
			Return(io.NopCloser(strings.NewReader("png-bytes")), "image/png", nil)

		rec := s.do(t, http.MethodGet, "/api/v1/images/abc.png", "", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "png-bytes", rec.Body.String())
	})

	t.Run("Missing image", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.images.On("OpenImage", mock.Anything, "gone.png").Return(nil, "", storage.ErrFileNotFound)

		rec := s.do(t, http.MethodGet, "/api/v1/images/gone.png", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Upload", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.images.On("UploadImage", mock.Anything, int32(7), "image/jpeg", mock.Anything).
			Return(&domain.Vehicle{ID: 7, ImageKey: "k.jpg"}, nil)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/fleet/vehicles/7/image", strings.NewReader("jpeg-bytes"))
		req.Header.Set("Content-Type", "image/jpeg")
		req.Header.Set("Authorization", "Bearer "+s.token(t, 2, domain.RoleEmployee))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		s.images.AssertExpectations(t)
	})
}

func TestRecovery(t *testing.T) {
	handler := api.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Type)
}
