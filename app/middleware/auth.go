package appMiddleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-poi-explore/internal/api"
)

type contextKey string

const SubjectKey contextKey = "subject"

// Claims identifies the client holding the token. The service is
// single-user, so only the subject is carried.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens signed with secret.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthenticator returns nil when secret is empty, which turns
// RequireAuth into a pass-through.
func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if secret == "" {
		logger.Warn("No JWT secret configured, write routes are unauthenticated")
		return nil
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, tokenString, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			msg := "Invalid or expired token"
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				msg = "Invalid token signature"
			}
			a.logger.WarnContext(r.Context(), "Rejected bearer token", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusUnauthorized, msg)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueToken signs a token for subject. Used by operators and tests.
func (a *Authenticator) IssueToken(subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims}).SignedString(a.secret)
}

func GetSubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(SubjectKey).(string)
	return sub, ok
}
