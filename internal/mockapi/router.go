package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Paths served by the fake remote.
const (
	PathAccessToken   = "/api/accessToken"
	PathLastInfo      = "/api/lastInfo"
	PathCurrentCourse = "/api/currentCourse"
	PathUserInfo      = "/api/userInfo"
	PathJoin          = "/api/join"
)

// Options configure request validation.
type Options struct {
	AppID string
	// UserAgent, when set, must match exactly on authenticated endpoints.
	UserAgent string
}

// fail mimics the remote: HTTP 200 with an application-level error status.
func fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(http.StatusOK, gin.H{"status": status, "message": err.Error(), "result": nil})
}

// RegisterRoutes mounts the fake check-in API on r.
func RegisterRoutes(r gin.IRouter, store *MemoryStore, opts Options) {
	r.GET(PathAccessToken, func(c *gin.Context) {
		if opts.AppID != "" && c.Query("appid") != opts.AppID {
			fail(c, http.StatusBadRequest, ErrUnknownOpenID)
			return
		}
		tok, err := store.IssueToken(c.Query("openid"))
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": 200, "message": "ok", "result": gin.H{"accessToken": tok}})
	})

	api := r.Group("/", RequireSession(store, opts.UserAgent))

	api.GET(PathLastInfo, func(c *gin.Context) {
		acc := accountFrom(c)
		if acc.NoProfile {
			c.JSON(http.StatusOK, gin.H{"status": 200, "result": nil})
			return
		}
		var nid, cardNo interface{} = acc.Nid, acc.CardNo
		if acc.HideNid {
			nid = nil
		}
		if acc.HideCardNo {
			cardNo = nil
		}
		nodes := make([]gin.H, 0, len(acc.Groups))
		for _, g := range acc.Groups {
			nodes = append(nodes, gin.H{"title": g})
		}
		c.JSON(http.StatusOK, gin.H{"status": 200, "result": gin.H{"nid": nid, "cardNo": cardNo, "nodes": nodes}})
	})

	api.GET(PathCurrentCourse, func(c *gin.Context) {
		course := store.Course()
		if course == nil {
			c.JSON(http.StatusOK, gin.H{"status": 200, "result": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": 200, "result": course})
	})

	api.GET(PathUserInfo, func(c *gin.Context) {
		acc := accountFrom(c)
		c.JSON(http.StatusOK, gin.H{"status": 200, "result": gin.H{"score": acc.Score}})
	})

	api.POST(PathJoin, func(c *gin.Context) {
		var req struct {
			Course string `json:"course"`
			Nid    string `json:"nid"`
			CardNo string `json:"cardNo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		if err := store.Join(c.GetString(ctxToken), req.Course, req.Nid, req.CardNo); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": 200, "message": "ok"})
	})
}

// NewRouter returns a gin engine serving the fake API.
func NewRouter(store *MemoryStore, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, store, opts)
	return r
}
