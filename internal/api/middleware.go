package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
)

type contextKey int

const actorKey contextKey = iota

// authenticate builds the actor from the identity headers. Requests without a
// user are rejected.
func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := model.Actor{
			UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			FamilyID: strings.TrimSpace(r.Header.Get(HeaderFamilyID)),
		}
		if !actor.Authenticated() {
			writeError(w, common.NewUserError("authentication required", common.ErrUnauthenticated))
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(actorKey).(model.Actor)
	return actor
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		common.LogDebug("Handled request", common.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}
