package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/responses"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"

	// RoleCustomer and RoleAdmin are the roles the upstream gateway asserts.
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity trusts the authenticating gateway's headers and loads the caller
// into the request context. Requests without a valid user id are rejected.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userIDHeader)
			if _, err := uuid.Parse(userID); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}

			role := r.Header.Get(roleHeader)
			if role == "" {
				role = RoleCustomer
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = WithRole(ctx, role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
				ctx = logg.WithActorRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
