package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ctxToken   = "accessToken"
	ctxAccount = "account"
)

var errBadUserAgent = errors.New("unsupported client")

// RequireSession resolves the accessToken query parameter to an account and
// rejects requests without the expected User-Agent.
func RequireSession(store *MemoryStore, userAgent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userAgent != "" && c.GetHeader("User-Agent") != userAgent {
			fail(c, http.StatusForbidden, errBadUserAgent)
			return
		}
		token := c.Query("accessToken")
		if token == "" {
			fail(c, http.StatusUnauthorized, ErrUnknownToken)
			return
		}
		acc, err := store.Lookup(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, err)
			return
		}
		c.Set(ctxToken, token)
		c.Set(ctxAccount, acc)
		c.Next()
	}
}

func accountFrom(c *gin.Context) Account {
	v, _ := c.Get(ctxAccount)
	acc, _ := v.(Account)
	return acc
}
