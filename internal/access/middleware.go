package access

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"w3lottery/internal/models"
)

// FlashCookie carries the denial reason to the page the user lands on.
const FlashCookie = "w3lottery_flash"

// StateKey is the gin context key holding the resolved models.UserState.
const StateKey = "userState"

const flashSetKey = "flashSet"

// StateFunc resolves the user behind a request.
type StateFunc func(c *gin.Context) models.UserState

// Middleware enforces Routes. The resolved state is stored under StateKey so
// handlers don't resolve it twice.
func Middleware(resolve StateFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := resolve(c)
		c.Set(StateKey, st)

		res := Check(c.Request.URL.Path, st)
		if res.Allowed {
			c.Next()
			return
		}

		target := Redirect(st)
		logger.Infof("Access denied: path=%s address=%s reason=%s", c.Request.URL.Path, st.Address, res.Reason)
		SetFlash(c, res.Reason)
		if c.GetHeader("HX-Request") == "true" {
			c.Header("HX-Redirect", target)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// State returns the user state stored by Middleware.
func State(c *gin.Context) models.UserState {
	if v, ok := c.Get(StateKey); ok {
		if st, ok := v.(models.UserState); ok {
			return st
		}
	}
	return models.UserState{}
}

// SetFlash stores reason for the next page view. The first reason set during
// a request wins.
func SetFlash(c *gin.Context, reason Reason) {
	if c.GetBool(flashSetKey) {
		return
	}
	c.Set(flashSetKey, true)
	c.SetCookie(FlashCookie, string(reason), 60, "/", "", false, true)
}

// TakeFlash returns and clears the pending denial reason.
func TakeFlash(c *gin.Context) Reason {
	v, err := c.Cookie(FlashCookie)
	if err != nil || v == "" {
		return ""
	}
	c.SetCookie(FlashCookie, "", -1, "/", "", false, true)
	return Reason(v)
}
