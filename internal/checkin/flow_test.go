package checkin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/models"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := logger.SetOutput(&buf)
	logger.Init("info")
	t.Cleanup(restore)
	return &buf
}

func TestFlow_EndToEnd(t *testing.T) {
	out := captureLog(t)
	s := newScripted(map[string][]string{
		StepAccessToken:   {`token: 'ABCD1234-EF'`},
		StepLastInfo:      {`{"result":{"nid":"N1","cardNo":"C1","nodes":[{"title":"G1"}]}}`},
		StepCurrentCourse: {`{"result":{"id":"CLS1","title":"Intro"}}`},
		StepUserInfo:      {`{"result":{"score":10}}`, `{"result":{"score":15}}`},
		StepJoin:          {`{"status":200}`},
	})
	c := newTestClient(t, s)

	rep, err := NewFlow(c, true).Run(context.Background(), models.Identity{Name: "alice", OpenID: "oA"})
	require.NoError(t, err)
	require.Equal(t, "10", rep.ScoreBefore.String())
	require.Equal(t, "15", rep.ScoreAfter.String())
	require.True(t, rep.Result.Success)
	require.Equal(t, 2, s.count(StepUserInfo))
	require.Equal(t, 1, s.count(StepJoin))

	log := out.String()
	require.Contains(t, log, "[*] Course title: Intro\n")
	require.Contains(t, log, "[*] Group info: [G1], nid: N1\n")
	require.Contains(t, log, "[*] cardNo: C1\n")
	require.Contains(t, log, "[*] Score before checkin: 10\n")
	require.Contains(t, log, "[*] Check in success\n")
	require.Contains(t, log, "[*] Score after checkin: 15\n")
	require.Less(t, strings.Index(log, "before"), strings.Index(log, "after"))
}

func TestFlow_QuietWhenNotVerbose(t *testing.T) {
	out := captureLog(t)
	s := newScripted(map[string][]string{
		StepAccessToken:   {`"TOK"`},
		StepLastInfo:      {`{"result":{"nid":"N1","cardNo":"C1","nodes":[]}}`},
		StepCurrentCourse: {`{"result":{"id":"CLS1","title":"Intro"}}`},
		StepUserInfo:      {`{"result":{"score":1}}`},
		StepJoin:          {`{"status":200}`},
	})
	_, err := NewFlow(newTestClient(t, s), false).Run(context.Background(), models.Identity{OpenID: "oA"})
	require.NoError(t, err)
	require.NotContains(t, out.String(), "Course title")
}

func TestFlow_EnrollmentNullSkipsJoin(t *testing.T) {
	captureLog(t)
	s := newScripted(map[string][]string{
		StepAccessToken: {`'TOK'`},
		StepLastInfo:    {`{"result":null}`},
		StepJoin:        {`{"status":200}`},
	})
	_, err := NewFlow(newTestClient(t, s), true).Run(context.Background(), models.Identity{OpenID: "oA"})
	require.ErrorIs(t, err, ErrUnresolvableEnrollment)
	require.Zero(t, s.count(StepJoin))
	require.Zero(t, s.count(StepUserInfo))
}

// fakeSteps lets each step be forced to fail.
type fakeSteps struct {
	tokenErr error
	join     *models.CheckInResult
	calls    []string
}

func (f *fakeSteps) AcquireToken(ctx context.Context, openid string) (string, error) {
	f.calls = append(f.calls, "token")
	return "TOK", f.tokenErr
}

func (f *fakeSteps) ResolveEnrollment(ctx context.Context, token, nid, cardNo string) (*models.EnrollmentInfo, error) {
	f.calls = append(f.calls, "enroll")
	return &models.EnrollmentInfo{NodeID: nid, CardNumber: cardNo}, nil
}

func (f *fakeSteps) ReadScore(ctx context.Context, token string) (models.ScoreReading, error) {
	f.calls = append(f.calls, "score")
	return models.ScoreReading{Value: "1", Numeric: true}, nil
}

func (f *fakeSteps) SubmitCheckIn(ctx context.Context, token string, info *models.EnrollmentInfo) (*models.CheckInResult, error) {
	f.calls = append(f.calls, "join")
	return f.join, nil
}

func TestFlow_TokenFailureAborts(t *testing.T) {
	captureLog(t)
	f := &fakeSteps{tokenErr: ErrInvalidIdentity}
	_, err := NewFlow(f, false).Run(context.Background(), models.Identity{OpenID: "o"})
	require.ErrorIs(t, err, ErrInvalidIdentity)
	require.Equal(t, []string{"token"}, f.calls)
}

func TestFlow_RejectionSurfacesMessage(t *testing.T) {
	captureLog(t)
	f := &fakeSteps{join: &models.CheckInResult{Success: false, Status: "400", Message: "already joined"}}
	rep, err := NewFlow(f, false).Run(context.Background(), models.Identity{OpenID: "o", NodeID: "N", CardNumber: "C"})

	var rej *RemoteRejection
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "already joined", rej.Message)
	require.Equal(t, "400", rej.Status)
	require.Equal(t, []string{"token", "enroll", "score", "join"}, f.calls)
	require.Equal(t, "1", rep.ScoreBefore.String())
}
