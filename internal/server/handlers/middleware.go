package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vettta06/devteam-ai/internal/server/models"
)

const contextUserKey = "user"

// requireAuth validates the bearer access token and stores the authenticated
// user in the request context. Missing, malformed, or invalid tokens all get
// the same 401.
func (s *HTTPServer) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(contextUserKey, user)
	c.Next()
}

// requireAdmin runs after requireAuth and rejects non-admin users.
func (s *HTTPServer) requireAdmin(c *gin.Context) {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

// currentUser returns the user stored by requireAuth, or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
