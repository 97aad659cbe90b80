// Package schedule runs workflows on cron expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunCallback starts one workflow run. The scheduler does not inspect the
// outcome; failures are the callback's to log and record.
type RunCallback func(ctx context.Context, initialData map[string]any) error

// Scheduler triggers a workflow definition on a cron expression. Overlapping
// runs are skipped rather than queued.
type Scheduler struct {
	DefinitionID string
	CronExpr     string
	Enabled      bool

	cron     *cron.Cron
	callback RunCallback
	logger   *slog.Logger
}

func NewScheduler(definitionID, cronExpr string, logger *slog.Logger) (*Scheduler, error) {
	scheduler := &Scheduler{
		DefinitionID: definitionID,
		CronExpr:     cronExpr,
		Enabled:      true,
		logger: logger.With(
			"module", "workflow_scheduler",
			"definition_id", definitionID,
			"cron", cronExpr,
		),
	}

	err := scheduler.Validate()
	if err != nil {
		return nil, err
	}

	return scheduler, nil
}

func (s *Scheduler) Validate() error {
	if s.DefinitionID == "" {
		return errors.New("scheduler definition ID is required")
	}

	if s.CronExpr == "" {
		return errors.New("scheduler cron expression is required")
	}

	if _, err := cron.ParseStandard(s.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

func (s *Scheduler) Start(ctx context.Context, callback RunCallback) error {
	if !s.Enabled {
		s.logger.InfoContext(ctx, "Scheduler is disabled")

		return nil
	}

	s.logger.InfoContext(ctx, "Starting workflow scheduler")
	s.callback = callback

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := s.cron.AddFunc(s.CronExpr, s.run)
	if err != nil {
		return fmt.Errorf("failed to add cron job for definition %s: %w", s.DefinitionID, err)
	}

	s.logger.InfoContext(ctx, "Added cron job", "job_id", id)
	s.cron.Start()

	return nil
}

func (s *Scheduler) run() {
	s.logger.Info("Cron tick, starting workflow run")

	initialData := map[string]any{
		"scheduled_at": time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		err := s.callback(context.Background(), initialData)
		if err != nil {
			s.logger.Error("Error running scheduled workflow", "error", err)
		}
	}()
}

// Stop halts the cron loop. In-flight runs finish on their own.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping workflow scheduler")

	if s.cron != nil {
		s.cron.Stop()
	}

	return nil
}
