package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/security"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int32
	Email  string
	Role   domain.Role
}

// Can reports whether the principal's role grants capability.
func (p Principal) Can(capability config.Capability) bool {
	return config.HasCapability(p.Role, capability)
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AccessLog writes one log line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.HTTPAccess(r.Method, r.URL.Path, rec.status, time.Since(start), "remote", r.RemoteAddr)
	})
}

// Recovery turns a handler panic into a 500 reply.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Type: "internal_error", Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// UserLookup loads the current state of an account.
type UserLookup interface {
	GetProfile(ctx context.Context, userID int32) (*domain.User, error)
}

// Authenticator validates bearer access tokens. Tokens carrying a staff role
// are checked against users on every request, so blocking or demoting an
// employee takes effect before the token expires.
type Authenticator struct {
	tokens security.TokenManager
	users  UserLookup
}

func NewAuthenticator(tokens security.TokenManager, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Optional attaches the principal when a valid bearer token is present and
// passes anonymous requests through. A malformed or expired token is still
// rejected so clients notice.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.tokens.ValidateToken(token, security.TokenTypeAccess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p := Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
		if p.Role != domain.RoleCustomer {
			if p, err = a.current(r.Context(), p); err != nil {
				writeError(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func (a *Authenticator) current(ctx context.Context, p Principal) (Principal, error) {
	user, err := a.users.GetProfile(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return p, security.ErrInvalidToken
		}
		return p, err
	}
	if user.Blocked {
		return p, domain.ErrAccountBlocked
	}
	p.Role = user.Role
	return p, nil
}

// Require rejects requests without a principal, or whose role lacks any of
// the listed capabilities.
func Require(capabilities ...config.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, security.ErrInvalidToken)
				return
			}
			for _, c := range capabilities {
				if !p.Can(c) {
					writeError(w, r, domain.ErrForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return header, true
}

// mustPrincipal is for handlers mounted behind Require.
func mustPrincipal(r *http.Request) Principal {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		panic(errors.New("handler mounted without auth middleware"))
	}
	return p
}
