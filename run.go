package defrag

import (
	"sync/atomic"
	"time"

	"github.com/dsoprea/go-logging"
)

// runState is the underlying value of RunningState.
type runState int32

const (
	StateRunning runState = iota
	StateStopping
	StateStopped
)

// RunningState is the shared cooperative-cancellation flag the worker
// checks at every inner-loop top and the display/caller side mutates to
// request a stop. It is safe for concurrent use by exactly the two roles
// described in spec.md §5: one worker goroutine, one caller goroutine.
type RunningState struct {
	v int32
}

// NewRunningState returns a flag initialized to Running.
func NewRunningState() *RunningState {
	return &RunningState{v: int32(StateRunning)}
}

func (r *RunningState) Load() runState {
	return runState(atomic.LoadInt32(&r.v))
}

func (r *RunningState) store(s runState) {
	atomic.StoreInt32(&r.v, int32(s))
}

// RunOptions configures one RunDefrag pass.
//
// ground: spec.md §6 "Caller-side (exposed)"
type RunOptions struct {
	Path       string
	Mode       Mode
	Speed      int // 1-100
	FreeSpace  int // 0-100 percent
	Excludes   []string
	SpaceHogs  []string // "DisableDefaults" suppresses built-in patterns
	Running    *RunningState
	Progress   ProgressCollaborator
	Volume     VolumeAccessor

	RecentlyModifiedThreshold time.Duration // default 15 minutes
	DirFailureThreshold       int           // default 20, see MoveEngine
}

const disableDefaultsToken = "DisableDefaults"

// RunDefrag executes opts.Mode's phase chain against opts.Volume until the
// chain completes or opts.Running transitions to Stopping. It always sets
// opts.Running to Stopped before returning.
//
// ground: spec.md §6 "Run-defrag entry point", §4.7 phase chains
func RunDefrag(opts RunOptions) (err error) {
	if opts.Running == nil {
		opts.Running = NewRunningState()
	}
	defer opts.Running.store(StateStopped)

	if opts.Progress == nil {
		opts.Progress = NullProgress{}
	}
	if opts.RecentlyModifiedThreshold == 0 {
		opts.RecentlyModifiedThreshold = 15 * time.Minute
	}
	if opts.DirFailureThreshold == 0 {
		opts.DirFailureThreshold = 20
	}
	if opts.Speed <= 0 || opts.Speed > 100 {
		opts.Speed = 100
	}

	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok {
				err = log.Wrap(asErr)
			} else {
				err = log.Errorf("panic during defrag pass: %v", r)
			}
		}
	}()

	session, err := newSession(opts)
	if err != nil {
		return log.Wrap(err)
	}

	for _, phaseName := range phasesForMode(opts.Mode) {
		if session.stopping() {
			break
		}
		if err := session.runPhase(phaseName); err != nil {
			opts.Progress.DebugMessage(DebugWarning, err.Error())
		}
	}

	session.reportFinal()

	return nil
}

// Stop requests that an in-progress RunDefrag pass wind down, and
// optionally blocks until it reports Stopped or timeout elapses.
//
// ground: spec.md §6 "Stop entry point"
func Stop(state *RunningState, timeout time.Duration) bool {
	state.store(StateStopping)

	if timeout <= 0 {
		return state.Load() == StateStopped
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if state.Load() == StateStopped {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return state.Load() == StateStopped
}
