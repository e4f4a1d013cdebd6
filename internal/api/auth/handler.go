package auth

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// LoginPage shows the login form, or the dashboard when already logged in.
func (p *Provider) LoginPage(c *gin.Context) {
	if IsLoggedIn(c) {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"Title": "Login"})
}

// Login checks the submitted credentials. A mismatch re-renders the login
// page without saying what was wrong and leaves the session untouched.
func (p *Provider) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil || !p.Verify(form.Username, form.Password) {
		log.Info("Failed login attempt", "username", form.Username, "ip", c.ClientIP())
		c.HTML(http.StatusOK, "login.html", gin.H{"Title": "Login"})
		return
	}

	session := sessions.Default(c)
	session.Set(SessionKeyLoggedIn, true)
	session.Set(SessionKeyUsername, form.Username)
	if err := session.Save(); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}

	log.Info("User logged in", "username", form.Username)
	c.Redirect(http.StatusFound, "/admin")
}

// Logout clears the session and returns to the login page.
func (p *Provider) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		log.Error("Failed to clear session", "error", err)
	}
	c.Redirect(http.StatusFound, "/")
}
