package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin marks principals allowed on the admin routes.
const RoleAdmin = "ADMIN"

// Principal is the authenticated caller extracted from the bearer token.
type Principal struct {
	UserID int64
	Role   string
}

type principalKey struct{}

// PrincipalFrom returns the authenticated principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator validates HS256 bearer tokens issued by the identity
// service and injects the resulting Principal into the request context.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator around the shared signing
// secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Authenticate rejects requests without a valid bearer token.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		p, err := a.parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) parse(token string) (Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, jwt.ErrTokenInvalidClaims
	}

	// Numeric JSON claims decode as float64.
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return Principal{}, jwt.ErrTokenInvalidClaims
	}
	role, _ := claims["role"].(string)

	return Principal{UserID: int64(uid), Role: role}, nil
}

// RequireAdmin guards admin routes. Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok || p.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
