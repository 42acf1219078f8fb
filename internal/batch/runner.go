package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/checkin"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/history"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/models"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/metrics"
)

// Flow runs one identity. *checkin.Flow implements it.
type Flow interface {
	Run(ctx context.Context, id models.Identity) (*checkin.Report, error)
}

// Options tune batch behaviour. The zero value stops at the first failure.
type Options struct {
	RunID           string
	ContinueOnError bool
	SkipDoneToday   bool
	Now             func() time.Time
}

// Runner walks identities one at a time.
type Runner struct {
	flow    Flow
	history history.Store
	opts    Options
}

func NewRunner(flow Flow, store history.Store, opts Options) *Runner {
	if store == nil {
		store = history.NopStore{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{flow: flow, history: store, opts: opts}
}

// Run checks in every identity in order. By default the first failure stops
// the batch and is returned; identities after it are never started. With
// ContinueOnError all identities run and failures are joined.
func (r *Runner) Run(ctx context.Context, ids []models.Identity) error {
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if id.Name != "" {
			logger.Infof("Checking in for openid %s", id.Name)
		}
		err := r.runOne(ctx, id)
		if err == nil {
			continue
		}
		logger.Error(err.Error())
		wrapped := fmt.Errorf("%s: %w", id.Label(), err)
		if !r.opts.ContinueOnError {
			return wrapped
		}
		errs = append(errs, wrapped)
	}
	return errors.Join(errs...)
}

func (r *Runner) runOne(ctx context.Context, id models.Identity) error {
	if r.opts.SkipDoneToday {
		prev, err := r.history.Get(ctx, id.OpenID, r.opts.Now())
		if err != nil {
			logger.Warnf("history lookup for %s failed: %v", id.Label(), err)
		} else if prev != nil && prev.Success {
			logger.Infof("Already checked in today (score %s), skipping", prev.ScoreAfter)
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			return nil
		}
	}

	rep, err := r.flow.Run(ctx, id)
	outcome := Classify(err)
	metrics.RunsTotal.WithLabelValues(outcome).Inc()

	rec := &history.Record{
		RunID:     r.opts.RunID,
		Name:      id.Name,
		Success:   err == nil,
		Outcome:   outcome,
		CheckedAt: r.opts.Now(),
	}
	if rep != nil {
		rec.ScoreBefore = rep.ScoreBefore.String()
		rec.ScoreAfter = rep.ScoreAfter.String()
		if rep.Result != nil {
			rec.Message = rep.Result.Message
		}
	}
	if err != nil && rec.Message == "" {
		rec.Message = err.Error()
	}
	if saveErr := r.history.Save(ctx, id.OpenID, rec); saveErr != nil {
		logger.Warnf("history save for %s failed: %v", id.Label(), saveErr)
	}
	return err
}

// Classify maps a flow error to a metrics outcome label.
func Classify(err error) string {
	var rej *checkin.RemoteRejection
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, checkin.ErrInvalidIdentity):
		return metrics.OutcomeInvalidIdentity
	case errors.Is(err, checkin.ErrUnresolvableEnrollment):
		return metrics.OutcomeUnresolvable
	case errors.As(err, &rej):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeTransport
	}
}
