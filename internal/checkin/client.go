package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/config"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/models"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/metrics"
	"golang.org/x/time/rate"
)

// Step names, used for error context and metric labels.
const (
	StepAccessToken   = "accessToken"
	StepLastInfo      = "lastInfo"
	StepCurrentCourse = "currentCourse"
	StepUserInfo      = "userInfo"
	StepJoin          = "join"
)

// joinSuccessStatus is the application-level status (inside the JSON body)
// that marks an accepted check-in.
const joinSuccessStatus = 200

// maxBody caps how much of a response is read into memory.
const maxBody = 1 << 20

// Client talks to the remote check-in service. One Client may serve many
// identities; it holds no per-identity state.
type Client struct {
	httpClient *http.Client
	urls       config.EndpointsConfig
	appID      string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient builds a Client from the immutable profile and HTTP settings.
func NewClient(p config.ProfileConfig, h config.HTTPConfig) *Client {
	limit := rate.Inf
	burst := h.Burst
	if h.RPS > 0 {
		limit = rate.Limit(h.RPS)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: h.Timeout},
		urls:       p.URL,
		appID:      p.AppID,
		userAgent:  p.UserAgent,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type lastInfoResponse struct {
	Result *struct {
		Nid    *models.FlexString `json:"nid"`
		CardNo *models.FlexString `json:"cardNo"`
		Nodes  []struct {
			Title string `json:"title"`
		} `json:"nodes"`
	} `json:"result"`
}

type currentCourseResponse struct {
	Result *struct {
		ID    models.FlexString `json:"id"`
		Title string            `json:"title"`
	} `json:"result"`
}

type userInfoResponse struct {
	Result *struct {
		Score models.FlexString `json:"score"`
	} `json:"result"`
}

type joinResponse struct {
	Status  interface{} `json:"status"`
	Message interface{} `json:"message"`
}

// AcquireToken exchanges an openid for an access token. The response is not
// trusted to be JSON; the token is scanned out of the raw text.
func (c *Client) AcquireToken(ctx context.Context, openid string) (string, error) {
	q := url.Values{"appid": {c.appID}, "openid": {openid}}
	body, err := c.do(ctx, StepAccessToken, http.MethodGet, c.urls.AccessToken, q, nil, false)
	if err != nil {
		return "", err
	}
	token, ok := ExtractToken(string(body))
	if !ok {
		return "", ErrInvalidIdentity
	}
	return token, nil
}

// ResolveEnrollment combines the profile and current course into the data the
// join call needs. Missing nid/cardNo fall back to the caller's values.
func (c *Client) ResolveEnrollment(ctx context.Context, token, fallbackNid, fallbackCardNo string) (*models.EnrollmentInfo, error) {
	var info lastInfoResponse
	if err := c.getJSON(ctx, StepLastInfo, c.urls.LastInfo, token, &info); err != nil {
		return nil, err
	}
	if info.Result == nil {
		return nil, fmt.Errorf("%w (%s returned no result)", ErrUnresolvableEnrollment, StepLastInfo)
	}

	nid, okNid := coalesce(info.Result.Nid, fallbackNid)
	cardNo, okCard := coalesce(info.Result.CardNo, fallbackCardNo)
	if !okNid || !okCard {
		return nil, fmt.Errorf("%w (nid/cardNo unset remotely and locally)", ErrUnresolvableEnrollment)
	}

	var course currentCourseResponse
	if err := c.getJSON(ctx, StepCurrentCourse, c.urls.CurrentCourse, token, &course); err != nil {
		return nil, err
	}
	if course.Result == nil {
		return nil, fmt.Errorf("%w (%s returned no result)", ErrUnresolvableEnrollment, StepCurrentCourse)
	}

	groups := make([]string, 0, len(info.Result.Nodes))
	for _, n := range info.Result.Nodes {
		groups = append(groups, n.Title)
	}

	return &models.EnrollmentInfo{
		ClassID:     course.Result.ID,
		NodeID:      nid,
		CardNumber:  cardNo,
		CourseTitle: course.Result.Title,
		Groups:      groups,
	}, nil
}

// ReadScore returns the user's current score.
func (c *Client) ReadScore(ctx context.Context, token string) (models.ScoreReading, error) {
	var resp userInfoResponse
	if err := c.getJSON(ctx, StepUserInfo, c.urls.UserInfo, token, &resp); err != nil {
		return models.ScoreReading{}, err
	}
	if resp.Result == nil {
		return models.ScoreReading{}, &TransportError{Endpoint: StepUserInfo, Err: errors.New("response has no result")}
	}
	return resp.Result.Score, nil
}

// SubmitCheckIn posts the enrollment. Success is decided by the status field
// inside the body, never by the HTTP status code.
func (c *Client) SubmitCheckIn(ctx context.Context, token string, info *models.EnrollmentInfo) (*models.CheckInResult, error) {
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode join body: %w", err)
	}
	q := url.Values{"accessToken": {token}}
	body, err := c.do(ctx, StepJoin, http.MethodPost, c.urls.Join, q, payload, true)
	if err != nil {
		return nil, err
	}
	var resp joinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Endpoint: StepJoin, Err: fmt.Errorf("decode body: %w", err)}
	}
	return &models.CheckInResult{
		Success: isSuccessStatus(resp.Status),
		Status:  stringify(resp.Status),
		Message: stringify(resp.Message),
	}, nil
}

func isSuccessStatus(v interface{}) bool {
	n, ok := v.(float64)
	return ok && n == joinSuccessStatus
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c *Client) getJSON(ctx context.Context, step, rawURL, token string, out interface{}) error {
	q := url.Values{"accessToken": {token}}
	body, err := c.do(ctx, step, http.MethodGet, rawURL, q, nil, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Endpoint: step, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

// do issues one request and returns the raw body. Any HTTP status is accepted;
// callers interpret the body.
func (c *Client) do(ctx context.Context, step, method, rawURL string, q url.Values, payload []byte, withUA bool) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.ObserveStep(step, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Endpoint: step, Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportError{Endpoint: step, Err: fmt.Errorf("parse url: %w", err)}
	}
	merged := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			merged.Set(k, v)
		}
	}
	u.RawQuery = merged.Encode()

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, &TransportError{Endpoint: step, Err: err}
	}
	if withUA && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: step, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, &TransportError{Endpoint: step, Err: fmt.Errorf("read body (status %d): %w", resp.StatusCode, err)}
	}
	if len(body) > maxBody {
		return nil, &TransportError{Endpoint: step, Err: fmt.Errorf("response exceeds %d bytes", maxBody)}
	}
	return body, nil
}
