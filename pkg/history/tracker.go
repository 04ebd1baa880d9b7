package history

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
)

// Tracker turns installer events into history records. A record is written
// when its session reports an error or finishes, whichever comes first, or
// when a newer session replaces it.
type Tracker struct {
	store  *Store
	logger *log.Logger

	// current is only touched from the handler, which the driver serializes
	current   *Record
	committed bool
}

// NewTracker creates a tracker writing to store. A nil logger discards
// write failures.
func NewTracker(store *Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tracker{
		store:  store,
		logger: logger.WithPrefix("history"),
	}
}

// Handler returns an install.Handler that records events.
func (t *Tracker) Handler() install.Handler {
	return t.handle
}

// SupersededMessage is recorded for a session replaced by a newer install
// before it reported an outcome.
const SupersededMessage = "superseded by a newer installation"

func (t *Tracker) handle(e install.Event) {
	switch e.Type {
	case install.EventStarted:
		if t.current != nil && !t.committed && t.current.SessionID != e.SessionID {
			t.commit(t.current.SessionID, e.Timestamp, OutcomeError, SupersededMessage)
		}
		t.current = &Record{
			SessionID: e.SessionID,
			Package:   e.Package,
			StartedAt: e.Timestamp,
		}
		t.committed = false

	case install.EventError:
		t.commit(e.SessionID, e.Timestamp, OutcomeError, e.Message)

	case install.EventFinished:
		outcome := OutcomeFailed
		if e.Success {
			outcome = OutcomeSucceeded
		}
		t.commit(e.SessionID, e.Timestamp, outcome, "")
	}
}

func (t *Tracker) commit(sessionID string, at time.Time, outcome, message string) {
	if t.current == nil || t.committed || sessionID != t.current.SessionID {
		return
	}

	t.current.FinishedAt = at
	if t.current.FinishedAt.IsZero() {
		t.current.FinishedAt = time.Now()
	}
	t.current.Outcome = outcome
	t.current.Message = message
	t.committed = true

	if err := t.store.Append(*t.current); err != nil {
		t.logger.Error("failed to record installation", "session", t.current.SessionID, "err", err)
	}
}
