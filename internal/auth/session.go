package auth

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys.
const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyIsAdmin  = "is_admin"

	identityKey = "identity"
)

// Identity is the logged-in user of a request.
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// AdminChecker answers whether a user currently holds admin rights.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// LoadIdentity copies the login session into the request context so handlers
// read it through CurrentIdentity instead of the session store.
func LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		if id, ok := s.Get(keyUserID).(int64); ok && id > 0 {
			name, _ := s.Get(keyUsername).(string)
			admin, _ := s.Get(keyIsAdmin).(bool)
			c.Set(identityKey, Identity{UserID: id, Username: name, IsAdmin: admin})
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by LoadIdentity or BearerAuth.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Login stores id in the session.
func Login(c *gin.Context, id Identity) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(keyUserID, id.UserID)
	s.Set(keyUsername, id.Username)
	s.Set(keyIsAdmin, id.IsAdmin)
	c.Set(identityKey, id)
	return s.Save()
}

// Refresh rewrites the stored username and admin flag without touching the
// rest of the session.
func Refresh(c *gin.Context, id Identity) error {
	s := sessions.Default(c)
	s.Set(keyUsername, id.Username)
	s.Set(keyIsAdmin, id.IsAdmin)
	c.Set(identityKey, id)
	return s.Save()
}

// Logout clears the session.
func Logout(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}

// Flash queues a message for the next rendered page.
func Flash(c *gin.Context, msg string) {
	s := sessions.Default(c)
	s.AddFlash(msg)
	_ = s.Save()
}

// Flashes pops the queued messages.
func Flashes(c *gin.Context) []string {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

// RequireLogin redirects anonymous requests to /login.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin consults checker on every request so revoked admins lose
// access immediately. Non-admins are sent back to / with a flash.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		admin, err := checker.IsAdmin(c.Request.Context(), id.UserID)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if !admin {
			Flash(c, "Admin privileges required.")
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		id.IsAdmin = true
		c.Set(identityKey, id)
		c.Next()
	}
}
