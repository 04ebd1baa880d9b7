package install

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// launch verifies the extracted archives and spawns the installer.
func (d *Driver) launch(s *Session) {
	d.emit(s, Event{Type: EventProgress, Message: "installing packages..."})
	s.setState(StateLaunching)

	paths := s.ArchivePaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			d.logger.Error("extracted archive missing", "session", s.ID, "path", p, "err", err)
			s.setState(StateFailed)
			d.emit(s, Event{Type: EventProgress, Message: "error: package file not found"})
			d.emit(s, Event{Type: EventFinished, Success: false})
			return
		}
	}

	// The previous installer may have ignored the first kill
	if prev := d.previous; prev != nil && prev.running() {
		d.logger.Warn("killing lingering installer", "session", prev.ID)
		if !prev.terminate(d.opts.KillWaitTimeout) {
			d.logger.Warn("abandoning installer that ignores termination", "session", prev.ID)
		}
	}

	argv := append(d.opts.Commands.Install(), paths...)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = &outputWriter{emit: func(msg string) { d.emit(s, Event{Type: EventProgress, Message: msg}) }}
	cmd.Stderr = &outputWriter{emit: func(msg string) { d.emit(s, Event{Type: EventProgress, Message: msg}) }}
	// Grandchildren holding the pipes open must not stall Wait forever
	cmd.WaitDelay = d.opts.KillWaitTimeout
	prepareProcessGroup(cmd)

	d.logger.Info("starting installer", "session", s.ID, "command", strings.Join(argv, " "))
	if err := startWithTimeout(cmd, d.opts.SpawnTimeout); err != nil {
		d.logger.Error("failed to start installer", "session", s.ID, "err", err)
		s.setState(StateFailed)
		d.emit(s, Event{Type: EventError, Message: fmt.Sprintf("failed to start process: %v", err)})
		return
	}

	s.setCmd(cmd)
	s.setState(StateRunning)
	go d.wait(s, cmd)
}

// wait reaps the installer and reports its outcome.
func (d *Driver) wait(s *Session, cmd *exec.Cmd) {
	err := cmd.Wait()
	state := cmd.ProcessState
	s.setExit(state)

	switch {
	case state != nil && state.Exited() && state.ExitCode() == 0:
		d.logger.Info("installer finished", "session", s.ID, "package", s.Package)
		d.emit(s, Event{Type: EventProgress, Message: fmt.Sprintf("package %s installed successfully", s.Package)})
		d.emit(s, Event{Type: EventFinished, Success: true})
		s.setState(StateSucceeded)

	case state != nil && state.Exited():
		d.logger.Warn("installer failed", "session", s.ID, "package", s.Package, "exit_code", state.ExitCode())
		d.emit(s, Event{Type: EventProgress, Message: fmt.Sprintf("failed to install package %s", s.Package)})
		d.emit(s, Event{Type: EventFinished, Success: false})
		s.setState(StateFailed)

	default:
		// Killed by a signal, or the wait itself failed
		d.logger.Error("installer crashed", "session", s.ID, "package", s.Package, "err", err)
		d.emit(s, Event{Type: EventProgress, Message: "error during installation"})
		d.emit(s, Event{Type: EventError, Message: "error during installation"})
		d.emit(s, Event{Type: EventProgress, Message: fmt.Sprintf("failed to install package %s", s.Package)})
		d.emit(s, Event{Type: EventFinished, Success: false})
		s.setState(StateFailed)
	}
}

// startWithTimeout starts cmd, giving up after timeout. A process that
// starts after the deadline is killed and reaped in the background.
func startWithTimeout(cmd *exec.Cmd, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- cmd.Start()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		go func() {
			if err := <-errCh; err == nil {
				killProcessGroup(cmd)
				_ = cmd.Wait()
			}
		}()
		return fmt.Errorf("process did not start within %s", timeout)
	}
}

// outputWriter turns each chunk the installer writes into one progress
// message. Chunks that are only whitespace are dropped.
type outputWriter struct {
	emit func(string)
}

func (w *outputWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.emit(msg)
	}
	return len(p), nil
}
