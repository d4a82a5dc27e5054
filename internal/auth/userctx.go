package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/users"
)

const (
	CtxExternalID = "external_id"
	CtxUserID     = "user_id"

	defaultUser = "demo-user"
)

type UserEnsurer interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
}

// WithUser resolves X-User-Id to an internal user id. Requests without the
// header act as the demo user.
func WithUser(userRepo UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ext := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if ext == "" {
			ext = defaultUser
		}

		uid, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			ExternalID:  ext,
			Email:       c.GetHeader("X-User-Email"),
			DisplayName: c.GetHeader("X-User-Name"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxExternalID, ext)
		c.Set(CtxUserID, uid)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}
