package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

// DefaultSnapshotWriteTimeout bounds a snapshot write so a stuck database never holds up a sale
const DefaultSnapshotWriteTimeout = 5 * time.Second

// snapshotWriter implements the SnapshotWriter interface
type snapshotWriter struct {
	repo    repositories.ReceiptSnapshotRepository
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewSnapshotWriter creates a snapshot writer. metrics may be nil.
func NewSnapshotWriter(repo repositories.ReceiptSnapshotRepository, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) SnapshotWriter {
	if timeout <= 0 {
		timeout = DefaultSnapshotWriteTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &snapshotWriter{
		repo:    repo,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// WriteSnapshot persists the sale with the configuration and identity it was made under.
// The write outlives a cancelled request context but never the writer's timeout.
func (w *snapshotWriter) WriteSnapshot(ctx context.Context, in SnapshotInput) (string, error) {
	snapshot := models.NewReceiptSnapshot(in.Source, in.Records, in.Config, in.Business)
	for i := range snapshot.LineItems {
		if i < len(in.Kinds) {
			snapshot.LineItems[i].Kind = in.Kinds[i]
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	err := w.repo.Create(writeCtx, snapshot)
	w.metrics.ObserveSnapshotWrite(string(in.Source), err)
	if err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"source":     in.Source,
			"record_ids": lo.Map(in.Records, func(r *models.ServiceRecord, _ int) string { return r.ID }),
		}).Warn("Receipt snapshot not saved; sale stands without it")
		return "", fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	w.logger.WithFields(logrus.Fields{
		"snapshot_id": snapshot.ID,
		"source":      in.Source,
		"items":       len(snapshot.LineItems),
	}).Debug("Receipt snapshot saved")

	return snapshot.ID, nil
}

// writeBestEffort runs the writer and turns a failure into a warning for the caller
func writeBestEffort(ctx context.Context, w SnapshotWriter, in SnapshotInput) (*string, []string) {
	id, err := w.WriteSnapshot(ctx, in)
	if err != nil {
		return nil, []string{"receipt snapshot could not be saved; reprints will use current tax settings"}
	}
	return &id, nil
}
