// Package install extracts bundled archives and runs the package manager on them.
package install

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/catalog"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/resource"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/syscmd"
)

// Options configures a Driver.
type Options struct {
	// Root is the directory inside the provider that holds package groups
	Root string

	// Commands are the privileged tools to run
	Commands syscmd.Commands

	// ScratchDir receives extracted archives. Empty creates a temporary
	// directory on first use, removed again by Close.
	ScratchDir string

	// KillWaitTimeout bounds the wait for a lingering process right before
	// a new one is spawned
	KillWaitTimeout time.Duration

	// PreemptWaitTimeout bounds the wait for the previous session's process
	// when a new installation starts
	PreemptWaitTimeout time.Duration

	// SpawnTimeout bounds how long the installer may take to start
	SpawnTimeout time.Duration

	// Logger receives diagnostics; nil discards them
	Logger *log.Logger
}

// DefaultOptions returns the stock pkexec/dpkg setup.
func DefaultOptions() Options {
	return Options{
		Root:               "packages",
		Commands:           syscmd.Default(),
		KillWaitTimeout:    1 * time.Second,
		PreemptWaitTimeout: 3 * time.Second,
		SpawnTimeout:       5 * time.Second,
	}
}

// Driver loads the package catalog and runs installation sessions.
// At most one session is active; starting another terminates the first.
type Driver struct {
	provider resource.Provider
	opts     Options
	handler  Handler
	logger   *log.Logger

	// mu serializes LoadPackages, InstallPackage and Close
	mu          sync.Mutex
	catalog     *catalog.Catalog
	previous    *Session
	scratchDir  string
	ownsScratch bool

	// emitMu orders handler calls; swapping current never takes it
	emitMu  sync.Mutex
	current atomic.Pointer[Session]
}

// New creates a driver reading archives from provider.
func New(provider resource.Provider, opts Options, handler Handler) *Driver {
	defaults := DefaultOptions()
	if opts.Root == "" {
		opts.Root = defaults.Root
	}
	if opts.Commands.Tool == "" {
		opts.Commands = defaults.Commands
	}
	if opts.KillWaitTimeout <= 0 {
		opts.KillWaitTimeout = defaults.KillWaitTimeout
	}
	if opts.PreemptWaitTimeout <= 0 {
		opts.PreemptWaitTimeout = defaults.PreemptWaitTimeout
	}
	if opts.SpawnTimeout <= 0 {
		opts.SpawnTimeout = defaults.SpawnTimeout
	}
	if handler == nil {
		handler = NoOpHandler
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Driver{
		provider: provider,
		opts:     opts,
		handler:  handler,
		logger:   logger.WithPrefix("install"),
		catalog:  catalog.New(),
	}
}

// LoadPackages rebuilds the catalog from the resource tree.
// It returns false if no manifests were found or none described a package;
// the catalog is empty afterwards.
func (d *Driver) LoadPackages() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	loaded, err := catalog.NewLoader(d.provider, d.opts.Root, d.logger).Load()
	if err != nil {
		d.logger.Error("failed to load packages", "root", d.opts.Root, "err", err)
		d.catalog = catalog.New()
		return false
	}

	d.catalog = loaded
	return true
}

// AvailablePackages returns the display names of all loaded packages.
func (d *Driver) AvailablePackages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.catalog.Names()
}

// Package returns the catalog entry for name, or nil if not found.
func (d *Driver) Package(name string) *catalog.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.catalog.Get(name)
}

// InstallStatus returns the state of the current session, or "idle".
func (d *Driver) InstallStatus() string {
	if s := d.current.Load(); s != nil {
		return s.State().String()
	}
	return StateIdle.String()
}

// Session returns the current session, or nil before the first install.
func (d *Driver) Session() *Session {
	return d.current.Load()
}

// InstallPackage extracts the named package and launches the installer.
// It returns once the installer has been spawned (or the attempt failed);
// the outcome is reported through events.
func (d *Driver) InstallPackage(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := d.catalog.Get(name)
	if entry == nil {
		d.logger.Warn("unknown package requested", "name", name)
		d.emit(nil, Event{Type: EventError, Message: fmt.Sprintf("package not found: %s", name)})
		return
	}

	s := newSession(entry, d.scratchDir)
	old := d.swapCurrent(s)
	if old != nil {
		d.previous = old
		if old.running() {
			d.logger.Info("terminating previous installation", "session", old.ID, "package", old.Package)
			if !old.terminate(d.opts.PreemptWaitTimeout) {
				d.logger.Warn("previous installer ignored termination", "session", old.ID)
			}
		}
		old.finish()
	}

	d.logger.Info("installing package", "name", name, "session", s.ID, "archives", len(s.Archives))
	d.emit(s, Event{Type: EventStarted})
	d.emit(s, Event{Type: EventProgress, Message: fmt.Sprintf("beginning installation of %s", name)})

	d.run(s)
}

// run drives a session through extraction and launch.
func (d *Driver) run(s *Session) {
	d.emit(s, Event{Type: EventProgress, Message: "extracting packages..."})
	s.setState(StateExtracting)

	if err := d.extract(s); err != nil {
		d.logger.Error("extraction failed", "session", s.ID, "err", err)
		s.setState(StateFailed)
		d.emit(s, Event{Type: EventError, Message: "extraction failed"})
		return
	}

	d.emit(s, Event{Type: EventProgress, Message: "packages extracted"})
	d.launch(s)
}

// Wait blocks until the current session is over. It returns immediately
// if there is no session.
func (d *Driver) Wait() {
	if s := d.current.Load(); s != nil {
		<-s.Done()
	}
}

// Close terminates any running installer and removes a scratch directory
// the driver created. It does not wait for a blocked handler; events still
// pending from the closed session are dropped once the handler returns.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s := d.swapCurrent(nil); s != nil {
		if !s.terminate(d.opts.KillWaitTimeout) {
			d.logger.Warn("installer still running at close", "session", s.ID)
		}
		s.finish()
	}

	if d.ownsScratch && d.scratchDir != "" {
		if err := os.RemoveAll(d.scratchDir); err != nil {
			return fmt.Errorf("failed to remove scratch directory: %w", err)
		}
		d.scratchDir = ""
		d.ownsScratch = false
	}

	return nil
}

// swapCurrent replaces the current session. Events from the replaced
// session that have not reached the handler yet are dropped. It never
// waits for a handler to return.
func (d *Driver) swapCurrent(s *Session) *Session {
	return d.current.Swap(s)
}

// emit delivers an event from session s (nil for session-less errors).
func (d *Driver) emit(s *Session, e Event) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	if s != nil {
		if d.current.Load() != s {
			d.logger.Debug("dropping event from superseded session", "session", s.ID, "event", e.String())
			return
		}
		e.SessionID = s.ID
		e.Package = s.Package
	}
	e.Timestamp = time.Now()

	d.logger.Debug("event", "type", e.Type, "message", e.Message, "success", e.Success)
	d.handler(e)
}
