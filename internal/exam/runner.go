package exam

import (
	"context"
	"time"

	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/registry"
	"github.com/rs/zerolog"
)

// Scheduling contract for a live session. Independent cooperative loops,
// all cancelled together on teardown.
const (
	TickInterval        = 1 * time.Second
	PushInterval        = 2 * time.Second
	ControlPollInterval = 2 * time.Second
)

// Runner drives one engine's periodic work: the one-second countdown, the
// registry push, and the admin control poll. Registry and control failures
// are logged and dropped; the next cycle supersedes them.
type Runner struct {
	engine  *Engine
	reg     registry.Registry
	control ControlSource
	log     zerolog.Logger

	// OnFinish is invoked exactly once, after the final registry update,
	// with the frozen exam log and analysis. Optional.
	OnFinish func(model.ExamLog, analyzer.Result)

	// MobileLiveness reports whether the paired phone is still inside its
	// heartbeat window. Consulted on every progress push so the dashboard's
	// connected state follows heartbeat liveness, not the last pair event.
	// A nil result (lookup failed) leaves the stored value untouched. Optional.
	MobileLiveness func(ctx context.Context) *bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner wires a runner for one engine.
func NewRunner(engine *Engine, reg registry.Registry, control ControlSource, log zerolog.Logger) *Runner {
	return &Runner{
		engine:  engine,
		reg:     reg,
		control: control,
		log:     log.With().Str("component", "exam_runner").Str("session_id", engine.SessionID()).Logger(),
		done:    make(chan struct{}),
	}
}

// Start registers the session and launches the periodic loops. The loops
// stop when ctx is cancelled, Stop is called, or the exam submits.
func (r *Runner) Start(ctx context.Context) error {
	rec, ok := r.engine.RegistryRecord()
	if !ok {
		return ErrNotInitialized
	}
	if err := r.reg.Register(ctx, rec); err != nil {
		return err
	}
	if err := r.reg.LogActivity(ctx, r.engine.SessionID(), "Exam started"); err != nil {
		r.log.Warn().Err(err).Msg("Initial activity log failed")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
	return nil
}

// Stop cancels the loops and waits for them to unwind. Safe to call only
// after a successful Start.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	tick := time.NewTicker(TickInterval)
	defer tick.Stop()
	push := time.NewTicker(PushInterval)
	defer push.Stop()
	control := time.NewTicker(ControlPollInterval)
	defer control.Stop()

	for {
		select {
		case <-ctx.Done():
			// Teardown without submission: the record goes stale and the
			// dashboard reports it terminated.
			return

		case <-tick.C:
			if r.engine.Tick() {
				r.finish(ctx, "Time expired, exam auto-submitted")
				return
			}
			// A submission through the HTTP handler also ends the loops.
			if r.engine.IsSubmitted() {
				r.finish(ctx, "Exam submitted")
				return
			}

		case <-push.C:
			r.pushProgress(ctx)

		case <-control.C:
			if r.applyControl(ctx) {
				r.finish(ctx, "Exam terminated by administrator")
				return
			}
		}
	}
}

func (r *Runner) pushProgress(ctx context.Context) {
	upd, ok := r.engine.ProgressUpdate()
	if !ok {
		return
	}
	if r.MobileLiveness != nil {
		upd.MobileConnected = r.MobileLiveness(ctx)
	}
	if err := r.reg.Update(ctx, r.engine.SessionID(), upd); err != nil {
		r.log.Warn().Err(err).Msg("Registry push failed")
	}
}

// applyControl drains queued admin commands. Returns true when a terminate
// was honored.
func (r *Runner) applyControl(ctx context.Context) bool {
	cmds, err := r.control.Poll(ctx, r.engine.SessionID())
	if err != nil {
		r.log.Warn().Err(err).Msg("Control poll failed")
		return false
	}

	terminated := false
	for _, cmd := range cmds {
		switch cmd.Kind {
		case model.ControlTerminate:
			r.log.Info().Msg("Terminate command received")
			r.engine.Submit()
			terminated = true
		case model.ControlWarn:
			r.log.Info().Str("message", cmd.Message).Msg("Warning command received")
			r.engine.Warn(cmd.Message)
			if err := r.reg.LogActivity(ctx, r.engine.SessionID(), "Warning issued: "+cmd.Message); err != nil {
				r.log.Warn().Err(err).Msg("Activity log failed")
			}
		}
	}
	return terminated
}

// finish performs the once-only completion side effects.
func (r *Runner) finish(ctx context.Context, activity string) {
	r.pushProgress(ctx)
	if err := r.reg.LogActivity(ctx, r.engine.SessionID(), activity); err != nil {
		r.log.Warn().Err(err).Msg("Final activity log failed")
	}
	if err := r.reg.Complete(ctx, r.engine.SessionID()); err != nil {
		r.log.Warn().Err(err).Msg("Registry complete failed")
	}

	if r.OnFinish != nil {
		result, _ := r.engine.Result()
		r.OnFinish(r.engine.Log(), result)
	}
}
