package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/agrione/offline-sync/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxAttempts is the retry ceiling
	DefaultMaxAttempts = 3
	// DefaultActionTimeout bounds a single processing attempt
	DefaultActionTimeout = 30 * time.Second
)

// Drop is an action removed from the queue during a pass
type Drop struct {
	Action queue.QueuedAction
	Err    error
}

// Result is the outcome of one pass, each list in processing order
type Result struct {
	Synced   []queue.QueuedAction
	Retained []queue.QueuedAction
	Dropped  []Drop
	// Untouched actions were not attempted, or were interrupted, because the
	// pass context ended. Their attempt counts are unchanged.
	Untouched []queue.QueuedAction
}

// Runner processes queued actions one at a time in FIFO order
type Runner struct {
	Registry      *queue.Registry
	Recorder      queue.DroppedRecorder
	MaxAttempts   int
	ActionTimeout time.Duration
	DropPermanent bool
	tracer        trace.Tracer
}

// NewRunner creates a runner with the default ceiling and timeout
func NewRunner(registry *queue.Registry, recorder queue.DroppedRecorder) *Runner {
	return &Runner{
		Registry:      registry,
		Recorder:      recorder,
		MaxAttempts:   DefaultMaxAttempts,
		ActionTimeout: DefaultActionTimeout,
		tracer:        otel.Tracer("agrione-sync/worker"),
	}
}

// Run attempts every action once
func (r *Runner) Run(ctx context.Context, actions []queue.QueuedAction) Result {
	ctx, span := r.getTracer().Start(ctx, "SyncPass", trace.WithAttributes(
		attribute.Int("sync.actions", len(actions)),
	))
	defer span.End()

	var res Result
	for i, action := range actions {
		if ctx.Err() != nil {
			res.Untouched = append(res.Untouched, actions[i:]...)
			break
		}

		err := r.handleAction(ctx, action)
		if err == nil {
			res.Synced = append(res.Synced, action)
			continue
		}
		if ctx.Err() != nil {
			// The caller gave up, not the action: it keeps its attempt count
			res.Untouched = append(res.Untouched, actions[i:]...)
			break
		}

		retained, dropped := r.handleFailure(ctx, action, err)
		if dropped {
			res.Dropped = append(res.Dropped, Drop{Action: retained, Err: err})
		} else {
			res.Retained = append(res.Retained, retained)
		}
	}

	span.SetAttributes(
		attribute.Int("sync.synced", len(res.Synced)),
		attribute.Int("sync.retained", len(res.Retained)),
		attribute.Int("sync.dropped", len(res.Dropped)),
		attribute.Int("sync.untouched", len(res.Untouched)),
	)
	return res
}

func (r *Runner) handleAction(ctx context.Context, action queue.QueuedAction) (err error) {
	ctx, span := r.getTracer().Start(ctx, "ProcessAction", trace.WithAttributes(
		attribute.String("action.id", action.ID),
		attribute.String("action.type", action.Type),
		attribute.Int("action.attempt_count", action.AttemptCount),
		attribute.String("action.enqueued_at", action.EnqueuedAt.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	handler, err := r.Registry.GetHandler(action.Type)
	if err != nil {
		return err
	}

	timeout := r.ActionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	err = handler(actionCtx, action)
	if err != nil && errors.Is(actionCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return err
}

// handleFailure increments the attempt count and decides whether the action stays
func (r *Runner) handleFailure(ctx context.Context, action queue.QueuedAction, err error) (queue.QueuedAction, bool) {
	logger := telemetry.LoggerFromContext(ctx)
	action.AttemptCount++

	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	permanent := r.DropPermanent && errors.Is(err, queue.ErrPermanent)
	if !permanent && action.AttemptCount < maxAttempts {
		logger.Warn().Err(err).
			Str("action_id", action.ID).
			Str("action_type", action.Type).
			Msgf("Retrying action (Attempt %d/%d)", action.AttemptCount, maxAttempts)
		return action, false
	}

	reason := fmt.Sprintf("failed after %d attempts: %v", action.AttemptCount, err)
	if permanent {
		reason = fmt.Sprintf("permanent failure: %v", err)
	}
	logger.Error().Err(err).
		Str("action_id", action.ID).
		Str("action_type", action.Type).
		Int("attempts", action.AttemptCount).
		Msg("Action dropped")

	if r.Recorder != nil {
		if recErr := r.Recorder.Record(ctx, action, reason); recErr != nil {
			logger.Error().Err(recErr).Str("action_id", action.ID).Msg("Error recording dropped action")
		}
	}
	return action, true
}

func (r *Runner) getTracer() trace.Tracer {
	if r.tracer == nil {
		return otel.Tracer("agrione-sync/worker")
	}
	return r.tracer
}
