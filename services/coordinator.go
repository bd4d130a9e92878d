package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Dosada05/competition-engine/metrics"
	"github.com/Dosada05/competition-engine/repositories"
)

// TxFunc is one attempt of an operation. It performs every read on rs,
// calls rs.Close, buffers its writes on the returned WriteSet and returns
// it. It may run several times, so it must not touch anything but rs and
// its own locals.
type TxFunc func(ctx context.Context, rs *repositories.ReadSet) (*repositories.WriteSet, error)

// Hook runs after a successful commit. Its failure is reported as a
// warning and never affects the committed state.
type Hook func(ctx context.Context) error

type CoordinatorConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Coordinator runs operations as read-then-write transactions, retrying
// optimistic concurrency conflicts transparently.
type Coordinator struct {
	store   repositories.DocumentStore
	cfg     CoordinatorConfig
	logger  *slog.Logger
	metrics *metrics.Manager
}

func NewCoordinator(store repositories.DocumentStore, cfg CoordinatorConfig, logger *slog.Logger, m *metrics.Manager) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 10 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, cfg: cfg, logger: logger, metrics: m}
}

// Run executes fn until it commits, fails, or runs out of attempts, then
// runs the after hooks. Hook failures come back as warnings.
func (c *Coordinator) Run(ctx context.Context, op string, fn TxFunc, after ...Hook) (warnings []string, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
		}
		c.metrics.ObserveOperation(op, outcome, time.Since(start))
	}()

	backoff := c.cfg.BaseBackoff
	for attempt := 1; ; attempt++ {
		err = c.attempt(ctx, fn)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrConflict) {
			return nil, classify(op, err)
		}
		if attempt >= c.cfg.MaxAttempts {
			c.logger.WarnContext(ctx, "transaction conflict retries exhausted", slog.String("operation", op), slog.Int("attempts", attempt))
			return nil, newError(KindInternal, ErrTransactionFailed, "%s: conflicts after %d attempts", op, attempt)
		}
		c.metrics.IncConflictRetry(op)
		c.logger.DebugContext(ctx, "retrying after transaction conflict", slog.String("operation", op), slog.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return nil, classify(op, ctx.Err())
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
	}

	for _, hook := range after {
		if hookErr := hook(ctx); hookErr != nil {
			c.metrics.IncHookFailure(op)
			c.logger.WarnContext(ctx, "after-commit side effect failed", slog.String("operation", op), slog.Any("error", hookErr))
			warnings = append(warnings, hookErr.Error())
		}
	}
	return warnings, nil
}

func (c *Coordinator) attempt(ctx context.Context, fn TxFunc) (txErr error) {
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
			}
		}
	}()

	rs := repositories.NewReadSet(tx)
	ws, err := fn(ctx, rs)
	if err != nil {
		return err
	}
	if ws == nil {
		return nil
	}
	mutations, err := ws.Mutations()
	if err != nil {
		return err
	}
	if len(mutations) == 0 {
		return nil
	}
	if err := tx.Commit(ctx, mutations); err != nil {
		committed = true
		return err
	}
	committed = true
	return nil
}

// View runs a read-only transaction.
func (c *Coordinator) View(ctx context.Context, fn func(ctx context.Context, rs *repositories.ReadSet) error) error {
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return classify("view", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()
	if err := fn(ctx, repositories.NewReadSet(tx)); err != nil {
		return classify("view", err)
	}
	return nil
}

// classify keeps engine errors as they are and turns anything else into
// Internal.
func classify(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindFailedPrecondition, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}
	return &Error{Kind: KindInternal, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

// jitter returns a random wait in [d/2, d).
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half)
}
