package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Agent is anything the orchestrator can run. Run blocks until the agent
// stops or ctx is cancelled.
type Agent interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner wraps an agent body with the shared lifecycle: it announces
// AgentStarted, keeps a heartbeat going, and always announces AgentStopped
// on the way out, whether the body returned cleanly, failed, or the context
// was cancelled. A failure also posts a fatal AgentError before the error is
// returned to the caller.
type Runner struct {
	AgentName         string
	Bus               *bus.Bus
	Logger            *zap.Logger
	HeartbeatInterval time.Duration

	// Start is the agent body. It must block until the agent is done.
	Start func(ctx context.Context) error

	// Cleanup runs after Start returns, before AgentStopped is posted.
	Cleanup func(ctx context.Context) error

	running atomic.Bool
}

// Status describes whether the agent body is currently executing.
type Status struct {
	AgentName string
	Running   bool
}

func (r *Runner) Name() string { return r.AgentName }

func (r *Runner) Status() Status {
	return Status{AgentName: r.AgentName, Running: r.running.Load()}
}

func (r *Runner) Run(ctx context.Context) error {
	r.Logger.Info("agent starting", zap.String("agent", r.AgentName))
	_ = r.Bus.Publish(bus.AgentStartedEvent, common.AgentStarted{
		AgentName:   r.AgentName,
		Source:      r.AgentName,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	})

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	go r.heartbeat(hbCtx)

	r.running.Store(true)
	err := r.Start(ctx)
	r.running.Store(false)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stopHeartbeat()

	if r.Cleanup != nil {
		if cerr := r.Cleanup(context.Background()); cerr != nil {
			r.Logger.Error("agent cleanup failed",
				zap.String("agent", r.AgentName), zap.Error(cerr))
		}
	}

	reason := "shutdown"
	if err != nil {
		reason = err.Error()
		r.Logger.Error("agent failed", zap.String("agent", r.AgentName), zap.Error(err))
		_ = r.Bus.Publish(bus.AgentErrorEvent, common.AgentError{
			AgentName:    r.AgentName,
			ErrorType:    "fatal",
			ErrorMessage: err.Error(),
			Fatal:        true,
			Source:       r.AgentName,
			ExecutionID:  utility.GetExecutionID(),
			TraceID:      utility.CreateTraceID(),
			TimeStamp:    time.Now(),
		})
	}

	_ = r.Bus.Publish(bus.AgentStoppedEvent, common.AgentStopped{
		AgentName:   r.AgentName,
		Reason:      reason,
		Source:      r.AgentName,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	})
	r.Logger.Info("agent stopped", zap.String("agent", r.AgentName))
	return err
}

func (r *Runner) heartbeat(ctx context.Context) {
	interval := r.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := "starting"
			if r.running.Load() {
				status = "running"
			}
			_ = r.Bus.Publish(bus.AgentHeartbeatEvent, common.AgentHeartbeat{
				AgentName:   r.AgentName,
				Status:      status,
				Source:      r.AgentName,
				ExecutionID: utility.GetExecutionID(),
				TraceID:     utility.CreateTraceID(),
				TimeStamp:   time.Now(),
			})
		}
	}
}
