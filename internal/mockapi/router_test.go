package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testUA = "test-agent"

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewMemoryStore(5)
	s.Put(Account{OpenID: "o1", Nid: "N1", CardNo: "C1", HideNid: true, Groups: []string{"G1"}, Score: 10})
	s.SetCourse(&Course{ID: "CLS1", Title: "Intro"})
	return NewRouter(s, Options{AppID: "wx", UserAgent: testUA}), s
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", testUA)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_TokenAndProfile(t *testing.T) {
	r, _ := newTestRouter(t)

	w := serve(r, http.MethodGet, PathAccessToken+"?appid=wx&openid=o1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tr struct {
		Result struct {
			AccessToken string `json:"accessToken"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	tok := tr.Result.AccessToken
	require.NotEmpty(t, tok)

	w = serve(r, http.MethodGet, PathLastInfo+"?accessToken="+tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":200,"result":{"nid":null,"cardNo":"C1","nodes":[{"title":"G1"}]}}`, w.Body.String())

	w = serve(r, http.MethodGet, PathCurrentCourse+"?accessToken="+tok, "")
	require.JSONEq(t, `{"status":200,"result":{"id":"CLS1","title":"Intro"}}`, w.Body.String())

	w = serve(r, http.MethodPost, PathJoin+"?accessToken="+tok, `{"course":"CLS1","nid":"N1","cardNo":"C1"}`)
	require.JSONEq(t, `{"status":200,"message":"ok"}`, w.Body.String())

	w = serve(r, http.MethodGet, PathUserInfo+"?accessToken="+tok, "")
	require.JSONEq(t, `{"status":200,"result":{"score":15}}`, w.Body.String())
}

func TestRouter_Rejections(t *testing.T) {
	r, _ := newTestRouter(t)

	w := serve(r, http.MethodGet, PathAccessToken+"?appid=wx&openid=nobody", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":400`)

	w = serve(r, http.MethodGet, PathLastInfo+"?accessToken=NOPE", "")
	require.JSONEq(t, `{"status":401,"message":"accessToken invalid","result":null}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, PathUserInfo+"?accessToken=NOPE", nil)
	req.Header.Set("User-Agent", "curl")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), `"status":403`)
}
