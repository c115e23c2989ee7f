package middleware

import (
	"net/http"

	"github.com/docsmith/backend/authz"
	"github.com/docsmith/backend/utils"
	"go.uber.org/zap"
)

// AuthzMiddleware enforces the declarative route policy table.
// It should be mounted after Authenticate so the principal is available.
type AuthzMiddleware struct {
	policy *authz.Policy
	logger *zap.Logger
}

// NewAuthzMiddleware creates a new AuthzMiddleware
func NewAuthzMiddleware(policy *authz.Policy, logger *zap.Logger) *AuthzMiddleware {
	return &AuthzMiddleware{
		policy: policy,
		logger: logger,
	}
}

// Authorize evaluates the route policy for the request path and either
// forwards the request or writes the denial. An unauthenticated denial maps
// to 401, an insufficient-authority denial to 403.
func (m *AuthzMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)
		principal := GetPrincipalFromContext(ctx)

		switch m.policy.Evaluate(r.URL.Path, principal) {
		case authz.Allow:
			next.ServeHTTP(w, r)

		case authz.DenyUnauthenticated:
			m.logger.Warn("unauthenticated request denied",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Authentication required")

		case authz.DenyForbidden:
			m.logger.Warn("insufficient authority",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.String("username", principal.Username))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		}
	})
}
