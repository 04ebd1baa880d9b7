package install

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/catalog"
)

// State is a step of the installation state machine.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateLaunching
	StateRunning
	StateSucceeded
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the session can no longer change.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Session is one installation run. It owns the child process it spawns.
type Session struct {
	ID       string
	Package  string
	Archives []string

	base       string
	scratchDir string

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	exit  *os.ProcessState

	done     chan struct{}
	doneOnce sync.Once

	// reaped is closed once the spawned child has been waited for
	reaped chan struct{}
}

func newSession(entry *catalog.Entry, scratchDir string) *Session {
	return &Session{
		ID:         uuid.New().String(),
		Package:    entry.Name,
		Archives:   append([]string(nil), entry.Archives...),
		base:       entry.Base,
		scratchDir: scratchDir,
		state:      StateIdle,
		done:       make(chan struct{}),
		reaped:     make(chan struct{}),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches a terminal state or is replaced.
// A replaced session's installer may outlive Done if it ignored termination;
// ExitState reports when it has been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if state.IsTerminal() {
		s.finish()
	}
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) setCmd(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmd = cmd
}

// setExit records the reaped child's status.
func (s *Session) setExit(state *os.ProcessState) {
	s.mu.Lock()
	s.exit = state
	s.mu.Unlock()

	close(s.reaped)
}

// ExitState returns the installer's exit status once it has been reaped,
// or nil while it runs or if it never started.
func (s *Session) ExitState() *os.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit
}

// running reports whether a child process was spawned and has not been reaped.
func (s *Session) running() bool {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil {
		return false
	}

	select {
	case <-s.reaped:
		return false
	default:
		return true
	}
}

// terminate kills the child process group and waits up to timeout for it to
// be reaped. A process that outlives the wait is abandoned.
func (s *Session) terminate(timeout time.Duration) bool {
	if !s.running() {
		return true
	}

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	killProcessGroup(cmd)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.reaped:
		return true
	case <-timer.C:
		return false
	}
}
