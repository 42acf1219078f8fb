package checkin

import (
	"context"
	"fmt"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/models"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
)

// Steps is the remote surface the flow needs. *Client implements it.
type Steps interface {
	AcquireToken(ctx context.Context, openid string) (string, error)
	ResolveEnrollment(ctx context.Context, token, fallbackNid, fallbackCardNo string) (*models.EnrollmentInfo, error)
	ReadScore(ctx context.Context, token string) (models.ScoreReading, error)
	SubmitCheckIn(ctx context.Context, token string, info *models.EnrollmentInfo) (*models.CheckInResult, error)
}

// Report is what one successful (or partially completed) run observed.
type Report struct {
	Enrollment  *models.EnrollmentInfo
	ScoreBefore models.ScoreReading
	ScoreAfter  models.ScoreReading
	Result      *models.CheckInResult
}

// Flow runs the check-in sequence for a single identity.
type Flow struct {
	steps   Steps
	verbose bool
}

func NewFlow(steps Steps, verbose bool) *Flow {
	return &Flow{steps: steps, verbose: verbose}
}

// Run executes token -> enrollment -> score -> join -> score. The first failing
// step ends the run; the partial report is returned alongside the error.
func (f *Flow) Run(ctx context.Context, id models.Identity) (*Report, error) {
	rep := &Report{}

	token, err := f.steps.AcquireToken(ctx, id.OpenID)
	if err != nil {
		return rep, err
	}

	info, err := f.steps.ResolveEnrollment(ctx, token, id.NodeID, id.CardNumber)
	if err != nil {
		return rep, err
	}
	rep.Enrollment = info
	if f.verbose {
		logger.Infof("Course title: %s", info.CourseTitle)
		logger.Infof("Group info: %v, nid: %s", info.Groups, info.NodeID)
		logger.Infof("cardNo: %s", info.CardNumber)
	}

	rep.ScoreBefore, err = f.steps.ReadScore(ctx, token)
	if err != nil {
		return rep, err
	}
	logger.Infof("Score before checkin: %s", rep.ScoreBefore)

	rep.Result, err = f.steps.SubmitCheckIn(ctx, token, info)
	if err != nil {
		return rep, err
	}
	if !rep.Result.Success {
		return rep, &RemoteRejection{Status: rep.Result.Status, Message: rep.Result.Message}
	}
	logger.Info("Check in success")

	rep.ScoreAfter, err = f.steps.ReadScore(ctx, token)
	if err != nil {
		return rep, fmt.Errorf("read score after check-in: %w", err)
	}
	logger.Infof("Score after checkin: %s", rep.ScoreAfter)
	return rep, nil
}
