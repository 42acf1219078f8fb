package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/mockapi"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Local stand-in for the remote check-in service. Seeds one account per
// comma separated MOCK_OPENID entry and publishes a single course.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "5020"
	}
	reward := 5
	if v := os.Getenv("MOCK_REWARD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			reward = n
		}
	}

	store := mockapi.NewMemoryStore(reward)
	for i, openid := range strings.Split(os.Getenv("MOCK_OPENID"), ",") {
		openid = strings.TrimSpace(openid)
		if openid == "" {
			continue
		}
		store.Put(mockapi.Account{
			OpenID: openid,
			Nid:    "N" + strconv.Itoa(i+1),
			CardNo: "C" + strconv.Itoa(i+1),
			Groups: []string{"Demo League"},
		})
		logger.Infof("seeded account %d", i+1)
	}
	store.SetCourse(&mockapi.Course{ID: "C0001", Title: "Demo lesson"})

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	mockapi.RegisterRoutes(r, store, mockapi.Options{
		AppID:     os.Getenv("MOCK_APPID"),
		UserAgent: os.Getenv("MOCK_UA"),
	})

	logger.Infof("mock check-in service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("mock server failed: %v", err)
	}
}
