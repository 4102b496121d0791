package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"tracehub/utils"

	"github.com/go-chi/jwtauth/v5"
)

// TokenLifetime is how long an issued access token remains valid.
const TokenLifetime = 8 * time.Hour

const subjectKey = "sub"

type JwtManager struct {
	auth *jwtauth.JWTAuth
}

func NewJwtManager(secret []byte) *JwtManager {
	return &JwtManager{auth: jwtauth.New("HS256", secret, nil)}
}

func (m *JwtManager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(m.auth)
}

// Authenticator rejects requests whose token is missing, malformed, expired,
// or carries an invalid signature. Unlike jwtauth.Authenticator it writes the
// {"detail": ...} error shape the rest of the api uses.
func (m *JwtManager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil {
				utils.WriteErrorDetail(w, fmt.Sprintf("invalid or expired token: %v", err), http.StatusUnauthorized)
				return
			}

			if token == nil {
				utils.WriteErrorDetail(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// CreateUserJwt issues a signed token for the given username, expiring after
// the given duration from now.
func (m *JwtManager) CreateUserJwt(username string, exp time.Duration) (string, error) {
	claims := map[string]interface{}{
		subjectKey: username,
		"exp":      time.Now().Add(exp),
	}
	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return token, nil
}

func ValueFromContext(r *http.Request, key string) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", fmt.Errorf("error retrieving auth claims: %w", err)
	}

	valueUncasted, ok := claims[key]
	if !ok {
		return "", fmt.Errorf("invalid token: unable to locate key %v in claims", key)
	}

	value, ok := valueUncasted.(string)
	if !ok {
		return "", fmt.Errorf("invalid token: value for key %v has invalid type", key)
	}

	return value, nil
}

func SubjectFromContext(r *http.Request) (string, error) {
	return ValueFromContext(r, subjectKey)
}
