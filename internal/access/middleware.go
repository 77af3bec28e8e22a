package access

import (
	"context"
	"net/http"

	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/httputil"
	"firmgate/pkg/requestcontext"
)

const (
	AccessDeniedPath   = "/access-denied"
	AdminDashboardPath = "/admin/dashboard"
	FirmDashboardPath  = "/firm/dashboard"
)

type classificationKey struct{}

func WithClassification(ctx context.Context, c Classification) context.Context {
	return context.WithValue(ctx, classificationKey{}, c)
}

func ClassificationFrom(ctx context.Context) (Classification, bool) {
	c, ok := ctx.Value(classificationKey{}).(Classification)
	return c, ok
}

// RequireRole answers 401 without a principal, redirects unrecognized
// principals to the access-denied page and answers 403 for the other role.
func (c *Classifier) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.PrincipalFrom(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			cls, err := c.Classify(ctx, principal.Email)
			if err != nil {
				c.logger.ErrorContext(ctx, "classification failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			switch cls.Role {
			case role:
				next.ServeHTTP(w, r.WithContext(WithClassification(ctx, cls)))
				return
			case RoleUnrecognized:
				c.deny(ctx, role, cls)
				http.Redirect(w, r, AccessDeniedPath, http.StatusSeeOther)
			default:
				c.deny(ctx, role, cls)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
			}
		})
	}
}

func (c *Classifier) deny(ctx context.Context, required Role, cls Classification) {
	c.logger.WarnContext(ctx, "access denied",
		"required_role", string(required),
		"role", string(cls.Role),
		"request_id", requestcontext.RequestID(ctx),
	)
	if c.metrics != nil {
		c.metrics.IncrementDenial(required)
	}
}

// DashboardPath is where a principal of role lands after signing in.
func DashboardPath(role Role) string {
	switch role {
	case RoleAdmin:
		return AdminDashboardPath
	case RoleFirm:
		return FirmDashboardPath
	default:
		return AccessDeniedPath
	}
}
