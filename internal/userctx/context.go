package userctx

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultUserID owns all data when requests are anonymous.
const DefaultUserID = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// UserIDOrDefault returns the authenticated user or DefaultUserID.
func UserIDOrDefault(ctx context.Context) string {
	if userID, ok := GetUserID(ctx); ok {
		return userID
	}
	return DefaultUserID
}
