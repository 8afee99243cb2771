package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole allows only the listed roles. Role is set by AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		role, ok := roleValue.(string)
		if !exists || !ok || !allowed[role] {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Access denied: insufficient role",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminMiddleware checks if the user has the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole("admin")
}

// StaffMiddleware allows librarians and admins (the library back office).
func StaffMiddleware() gin.HandlerFunc {
	return RequireRole("librarian", "admin")
}
