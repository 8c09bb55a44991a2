package auth

import (
	"context"

	"github.com/dukerupert/pawboard/internal/model"
)

type contextKey struct{}

// AuthContext identifies the member behind a request.
type AuthContext struct {
	UserID      string
	HouseholdID string
	IsAdmin     bool
}

// FromUser builds the context value for an authenticated user.
func FromUser(u *model.User) AuthContext {
	return AuthContext{UserID: u.ID, HouseholdID: u.HouseholdID, IsAdmin: u.IsAdmin}
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) string {
	ac, _ := FromContext(ctx)
	return ac.HouseholdID
}

func UserID(ctx context.Context) string {
	ac, _ := FromContext(ctx)
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.IsAdmin
}
