package middleware

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityRecorder updates a user's last-active timestamp and daily streak.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID primitive.ObjectID) error
}

// ActivityMiddleware records activity for every authenticated request. Errors
// are ignored: activity bookkeeping must never fail a request.
func ActivityMiddleware(recorder ActivityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims != nil {
				if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
					_ = recorder.RecordActivity(r.Context(), userID)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
