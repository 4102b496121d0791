package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"tracehub/trace/schema"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("incorrect username or password")

type requestContextKey string

const userRequestContextKey requestContextKey = "user"

// Identity resolves bearer tokens to user records. Tokens carry the username
// as subject; the user row is loaded fresh on every request so role changes
// take effect without reissuing tokens.
type Identity struct {
	jwtManager *JwtManager
	db         *gorm.DB
	auditLog   AuditLogger
}

func NewIdentity(db *gorm.DB, auditLog AuditLogger, secret []byte) *Identity {
	return &Identity{
		jwtManager: NewJwtManager(secret),
		db:         db,
		auditLog:   auditLog,
	}
}

// Login checks the given credentials and returns a signed access token. The
// same error is returned for an unknown username and a wrong password.
func (auth *Identity) Login(username, password string) (string, error) {
	user, err := schema.GetUserByUsername(username, auth.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !VerifyPassword(password, user.HashedPassword) {
		return "", ErrInvalidCredentials
	}

	token, err := auth.jwtManager.CreateUserJwt(user.Username, TokenLifetime)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}

	return token, nil
}

func (auth *Identity) addUserToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			username, err := SubjectFromContext(r)
			if err != nil {
				utils.WriteErrorDetail(w, err.Error(), http.StatusUnauthorized)
				return
			}

			user, err := schema.GetUserByUsername(username, auth.db)
			if err != nil {
				if errors.Is(err, schema.ErrUserNotFound) {
					utils.WriteErrorDetail(w, fmt.Sprintf("no user found for token subject '%v'", username), http.StatusUnauthorized)
					return
				}
				utils.WriteErrorDetail(w, fmt.Sprintf("unable to load user %v: %v", username, err), http.StatusInternalServerError)
				return
			}

			reqCtx := context.WithValue(r.Context(), userRequestContextKey, user)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}

		return http.HandlerFunc(handler)
	}
}

func (auth *Identity) AuthMiddleware() chi.Middlewares {
	return chi.Middlewares{auth.jwtManager.Verifier(), auth.jwtManager.Authenticator(), auth.addUserToContext(), auth.auditLog.Middleware}
}

func UserFromContext(r *http.Request) (schema.User, error) {
	userUntyped := r.Context().Value(userRequestContextKey)
	if userUntyped == nil {
		return schema.User{}, fmt.Errorf("user field not found in request context")
	}
	user, ok := userUntyped.(schema.User)
	if !ok {
		return schema.User{}, fmt.Errorf("invalid value for user field")
	}
	return user, nil
}
