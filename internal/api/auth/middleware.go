package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth redirects anonymous requests to the login page.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if !getSessionBool(session, SessionKeyLoggedIn) {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}

		c.Set(SessionKeyUsername, getSessionString(session, SessionKeyUsername))
		c.Next()
	}
}

// IsLoggedIn reports whether the request carries an authenticated session.
func IsLoggedIn(c *gin.Context) bool {
	return getSessionBool(sessions.Default(c), SessionKeyLoggedIn)
}

// Helper functions to safely get session values.
func getSessionString(session sessions.Session, key string) string {
	if val := session.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getSessionBool(session sessions.Session, key string) bool {
	if val := session.Get(key); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
