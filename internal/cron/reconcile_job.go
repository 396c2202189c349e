package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

const (
	defaultReconcileBatch    = 100
	defaultReconcileLookback = 10 * time.Minute
)

// ReconcileJobParams configures the payment source reconciliation job.
type ReconcileJobParams struct {
	Logger    *logger.Logger
	Sources   sourceLister
	Gateway   sourceSyncer
	BatchSize int
	Lookback  time.Duration
	Now       func() time.Time
}

type sourceLister interface {
	ListForReconcile(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentSource, error)
}

type sourceSyncer interface {
	Sync(ctx context.Context, source *models.PaymentSource) (*gateway.Response, error)
}

// NewReconcileJob builds the job that re-queries the processor for sources
// whose webhooks may have been lost.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sources == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &reconcileJob{
		logg:     params.Logger,
		sources:  params.Sources,
		gateway:  params.Gateway,
		batch:    batch,
		lookback: lookback,
		now:      now,
	}, nil
}

type reconcileJob struct {
	logg     *logger.Logger
	sources  sourceLister
	gateway  sourceSyncer
	batch    int
	lookback time.Duration
	now      func() time.Time
}

func (j *reconcileJob) Name() string { return "payment-source-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.lookback)
	rows, err := j.sources.ListForReconcile(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list payment sources: %w", err)
	}

	var errs error
	changed, rejected := 0, 0
	for i := range rows {
		source := &rows[i]
		resp, err := j.gateway.Sync(ctx, source)
		if err != nil {
			if !pkgerrors.Retryable(err) {
				// The processor gave a final answer; the next run would get the same one.
				rejected++
				j.logg.Warn(j.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "payment source sync rejected")
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("sync source %s: %w", source.ID, err))
			continue
		}
		if resp != nil && resp.Transition.Changed() {
			changed++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"scanned":  len(rows),
		"changed":  changed,
		"rejected": rejected,
		"failed":   len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment source reconcile complete")
	return errs
}
