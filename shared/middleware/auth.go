package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	SessionHeader = "X-Session-Token"
	callerKey     = "caller"
)

type contextKey struct{}

// TokenVerifier checks a session token and returns the identity it carries
type TokenVerifier interface {
	Verify(token string) (*models.UserInfo, error)
}

// RevocationChecker reports whether a token id was logged out
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware resolves the optional caller of every request
type AuthMiddleware struct {
	verifier TokenVerifier
	revoked  RevocationChecker
}

func NewAuthMiddleware(verifier TokenVerifier, revoked RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, revoked: revoked}
}

// IdentityGate attaches the caller to the request when a valid session token
// is present. It never rejects: any failure leaves the request anonymous.
func (am *AuthMiddleware) IdentityGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		caller, reason := am.resolve(c.Request.Context(), token)
		if caller == nil {
			metrics.InvalidSessionTokensTotal.WithLabelValues(reason).Inc()
			c.Next()
			return
		}

		SetCaller(c, caller)
		c.Next()
	}
}

func (am *AuthMiddleware) resolve(ctx context.Context, token string) (*models.UserInfo, string) {
	caller, err := am.verifier.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		logrus.WithError(err).Debug("Ignoring session token")
		return nil, reason
	}

	if am.revoked != nil {
		revoked, err := am.revoked.IsRevoked(ctx, caller.TokenID)
		if err != nil {
			logrus.WithError(err).Warn("Revocation check failed, treating request as anonymous")
			return nil, "revocation_error"
		}
		if revoked {
			return nil, "revoked"
		}
	}
	return caller, ""
}

// RequireAuth rejects requests without a resolved caller
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserInfoFromContext(c) == nil {
			utils.AppErrorResponse(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// extractToken reads the session header, falling back to a bearer token
func extractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(SessionHeader)); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// SetCaller places caller on both the gin context and the request context
func SetCaller(c *gin.Context, caller *models.UserInfo) {
	c.Set(callerKey, caller)
	c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))
}

// WithCaller returns ctx carrying caller
func WithCaller(ctx context.Context, caller *models.UserInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFromContext returns the caller on ctx, or nil for anonymous requests
func CallerFromContext(ctx context.Context) *models.UserInfo {
	caller, _ := ctx.Value(contextKey{}).(*models.UserInfo)
	return caller
}

// GetUserInfoFromContext returns the caller resolved by IdentityGate, or nil
func GetUserInfoFromContext(c *gin.Context) *models.UserInfo {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(*models.UserInfo); ok {
			return caller
		}
	}
	return nil
}
