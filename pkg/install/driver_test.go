package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/resource"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/syscmd"
)

// stubInstaller writes a shell script standing in for dpkg. It is invoked as
// "sh <script> -i <paths...>".
func stubInstaller(t *testing.T, body string) syscmd.Commands {
	t.Helper()

	script := filepath.Join(t.TempDir(), "installer.sh")
	content := "#!/bin/sh\nshift\n" + body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))

	return syscmd.Commands{Launcher: "/bin/sh", Tool: script}
}

func editorFS() fstest.MapFS {
	return fstest.MapFS{
		"packages/grp/editor.list": {Data: []byte("# editor bundle\nEditor\neditor.deb\n")},
		"packages/grp/editor.deb":  {Data: []byte("editor archive")},
	}
}

func newTestDriver(t *testing.T, fsys fstest.MapFS, cmds syscmd.Commands) (*Driver, *Recorder, string) {
	t.Helper()

	scratch := t.TempDir()
	rec := NewRecorder()
	d := New(resource.NewFSProvider(fsys), Options{
		Root:               "packages",
		Commands:           cmds,
		ScratchDir:         scratch,
		KillWaitTimeout:    500 * time.Millisecond,
		PreemptWaitTimeout: 2 * time.Second,
		SpawnTimeout:       2 * time.Second,
	}, rec.Handler())
	t.Cleanup(func() { _ = d.Close() })

	return d, rec, scratch
}

func TestLoadPackages(t *testing.T) {
	d, _, _ := newTestDriver(t, editorFS(), syscmd.Default())

	require.True(t, d.LoadPackages())
	assert.Equal(t, []string{"Editor"}, d.AvailablePackages())

	entry := d.Package("Editor")
	require.NotNil(t, entry)
	assert.Equal(t, []string{"grp/editor.deb"}, entry.Archives)
}

func TestLoadPackages_NoManifests(t *testing.T) {
	fsys := editorFS()
	d, _, _ := newTestDriver(t, fsys, syscmd.Default())
	require.True(t, d.LoadPackages())

	delete(fsys, "packages/grp/editor.list")

	assert.False(t, d.LoadPackages())
	assert.Empty(t, d.AvailablePackages(), "failed load should leave the catalog empty")
}

func TestInstallPackage_UnknownPackage(t *testing.T) {
	tests := []struct {
		name string
		load bool
	}{
		{"before loading", false},
		{"after loading", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, rec, _ := newTestDriver(t, editorFS(), syscmd.Default())
			if tt.load {
				require.True(t, d.LoadPackages())
			}

			d.InstallPackage("nonexistent")

			events := rec.Events()
			require.Len(t, events, 1)
			assert.Equal(t, EventError, events[0].Type)
			assert.Equal(t, "package not found: nonexistent", events[0].Message)
			assert.Empty(t, events[0].SessionID)
			assert.Nil(t, d.Session())
			assert.Equal(t, "idle", d.InstallStatus())
		})
	}
}

func TestInstallPackage_HappyPath(t *testing.T) {
	cmds := stubInstaller(t, `echo "Setting up $(basename "$1")"`)
	d, rec, scratch := newTestDriver(t, editorFS(), cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	assert.Equal(t, []string{
		`started`,
		`progress("beginning installation of Editor")`,
		`progress("extracting packages...")`,
		`progress("packages extracted")`,
		`progress("installing packages...")`,
		`progress("Setting up editor.deb")`,
		`progress("package Editor installed successfully")`,
		`finished(true)`,
	}, rec.Strings())

	s := d.Session()
	require.NotNil(t, s)
	assert.Equal(t, StateSucceeded, s.State())
	assert.Equal(t, "succeeded", d.InstallStatus())

	for _, e := range rec.Events() {
		assert.Equal(t, s.ID, e.SessionID)
		assert.Equal(t, "Editor", e.Package)
	}

	data, err := os.ReadFile(filepath.Join(scratch, "editor.deb"))
	require.NoError(t, err)
	assert.Equal(t, "editor archive", string(data))
}

func TestInstallPackage_ArchiveOrderAndPermissions(t *testing.T) {
	fsys := fstest.MapFS{
		"packages/suite/suite.list": {Data: []byte("Suite\nzeta.deb\nalpha.deb\n# trailing comment\nmid.deb\n")},
		"packages/suite/zeta.deb":   {Data: []byte("z")},
		"packages/suite/alpha.deb":  {Data: []byte("a")},
		"packages/suite/mid.deb":    {Data: []byte("m")},
	}
	cmds := stubInstaller(t, `out=""; for f in "$@"; do out="$out $(basename "$f")"; done; echo $out`)
	d, rec, scratch := newTestDriver(t, fsys, cmds)
	require.True(t, d.LoadPackages())

	// Stale file from an earlier run, with the wrong mode
	stale := filepath.Join(scratch, "alpha.deb")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	d.InstallPackage("Suite")
	d.Wait()

	progress := rec.OfType(EventProgress)
	messages := make([]string, len(progress))
	for i, e := range progress {
		messages[i] = e.Message
	}
	assert.Contains(t, messages, "zeta.deb alpha.deb mid.deb")

	for _, name := range []string{"zeta.deb", "alpha.deb", "mid.deb"} {
		info, err := os.Stat(filepath.Join(scratch, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm(), name)
	}

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data), "stale archive should be overwritten")
}

func TestInstallPackage_ExtractionFailure(t *testing.T) {
	fsys := editorFS()
	delete(fsys, "packages/grp/editor.deb")

	d, rec, _ := newTestDriver(t, fsys, stubInstaller(t, "echo should-not-run"))
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	assert.Equal(t, []string{
		`started`,
		`progress("beginning installation of Editor")`,
		`progress("extracting packages...")`,
		`error("extraction failed")`,
	}, rec.Strings())
	assert.Empty(t, rec.OfType(EventFinished))
	assert.Equal(t, StateFailed, d.Session().State())
}

func TestInstallPackage_ExtractionStopsAtFirstFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"packages/grp/multi.list": {Data: []byte("Multi\nfirst.deb\nmissing.deb\nthird.deb\n")},
		"packages/grp/first.deb":  {Data: []byte("1")},
		"packages/grp/third.deb":  {Data: []byte("3")},
	}
	d, rec, scratch := newTestDriver(t, fsys, stubInstaller(t, "exit 0"))
	require.True(t, d.LoadPackages())

	d.InstallPackage("Multi")

	assert.Equal(t, EventError, rec.Last().Type)
	assert.FileExists(t, filepath.Join(scratch, "first.deb"), "partial copies are kept")
	assert.NoFileExists(t, filepath.Join(scratch, "third.deb"), "remaining archives are not attempted")
}

func TestInstallPackage_NonZeroExit(t *testing.T) {
	cmds := stubInstaller(t, `echo "unpacking"; echo "dpkg: error processing archive" >&2; exit 1`)
	d, rec, _ := newTestDriver(t, editorFS(), cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	events := rec.Events()
	require.GreaterOrEqual(t, len(events), 2)

	last := events[len(events)-1]
	assert.Equal(t, EventFinished, last.Type)
	assert.False(t, last.Success)

	beforeLast := events[len(events)-2]
	assert.Equal(t, `progress("failed to install package Editor")`, beforeLast.String())

	messages := make([]string, 0)
	for _, e := range rec.OfType(EventProgress) {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "unpacking")
	assert.Contains(t, messages, "dpkg: error processing archive", "stderr is relayed as progress")
	assert.Empty(t, rec.OfType(EventError))
	assert.Equal(t, StateFailed, d.Session().State())
}

func TestInstallPackage_WhitespaceOutputIgnored(t *testing.T) {
	cmds := stubInstaller(t, `printf '\n   \n\t\n'; exit 0`)
	d, rec, _ := newTestDriver(t, editorFS(), cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	for _, e := range rec.OfType(EventProgress) {
		assert.NotEmpty(t, e.Message)
	}
	assert.Equal(t, `finished(true)`, rec.Last().String())
}

func TestInstallPackage_Crash(t *testing.T) {
	cmds := stubInstaller(t, `kill -9 $$`)
	d, rec, _ := newTestDriver(t, editorFS(), cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	strs := rec.Strings()
	require.GreaterOrEqual(t, len(strs), 4)
	assert.Equal(t, []string{
		`progress("error during installation")`,
		`error("error during installation")`,
		`progress("failed to install package Editor")`,
		`finished(false)`,
	}, strs[len(strs)-4:])
}

func TestInstallPackage_SpawnFailure(t *testing.T) {
	cmds := syscmd.Commands{Tool: filepath.Join(t.TempDir(), "no-such-dpkg")}
	d, rec, _ := newTestDriver(t, editorFS(), cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()

	last := rec.Last()
	require.NotNil(t, last)
	assert.Equal(t, EventError, last.Type)
	assert.Contains(t, last.Message, "failed to start process: ")
	assert.Empty(t, rec.OfType(EventFinished))
	assert.Equal(t, StateFailed, d.Session().State())
}

func TestLaunch_MissingExtractedFile(t *testing.T) {
	d, rec, scratch := newTestDriver(t, editorFS(), stubInstaller(t, "exit 0"))
	require.True(t, d.LoadPackages())

	s := newSession(d.Package("Editor"), scratch)
	d.swapCurrent(s)

	d.launch(s)

	assert.Equal(t, []string{
		`progress("installing packages...")`,
		`progress("error: package file not found")`,
		`finished(false)`,
	}, rec.Strings())
	assert.Equal(t, StateFailed, s.State())
	assert.Nil(t, s.ExitState(), "installer must not be spawned")
}

func TestInstallPackage_PreemptsRunningInstaller(t *testing.T) {
	fsys := fstest.MapFS{
		"packages/slow/slow.list": {Data: []byte("Slow\nslow.deb\n")},
		"packages/slow/slow.deb":  {Data: []byte("s")},
		"packages/fast/fast.list": {Data: []byte("Fast\nfast.deb\n")},
		"packages/fast/fast.deb":  {Data: []byte("f")},
	}
	cmds := stubInstaller(t, `case "$1" in *slow.deb) echo "waiting"; sleep 30;; esac; echo "done"`)
	d, rec, _ := newTestDriver(t, fsys, cmds)
	require.True(t, d.LoadPackages())

	d.InstallPackage("Slow")
	first := d.Session()
	require.NotNil(t, first)
	assert.Equal(t, StateRunning, first.State())

	d.InstallPackage("Fast")
	second := d.Session()
	require.NotSame(t, first, second)

	// The first installer was killed and reaped before the second was spawned
	exit := first.ExitState()
	require.NotNil(t, exit, "first installer should have exited")
	assert.False(t, exit.Exited(), "first installer should have been killed by a signal")

	d.Wait()
	assert.Equal(t, StateSucceeded, second.State())

	for _, e := range rec.Events() {
		if e.SessionID == first.ID {
			assert.NotEqual(t, EventFinished, e.Type, "superseded session must not report completion")
			assert.NotEqual(t, EventError, e.Type)
		}
	}
	last := rec.Last()
	assert.Equal(t, second.ID, last.SessionID)
	assert.Equal(t, `finished(true)`, last.String())
}

func TestInstallPackage_RekillsInstallerThatOutlivesPreemptWait(t *testing.T) {
	fsys := fstest.MapFS{
		"packages/slow/slow.list": {Data: []byte("Slow\nslow.deb\n")},
		"packages/slow/slow.deb":  {Data: []byte("s")},
		"packages/fast/fast.list": {Data: []byte("Fast\nfast.deb\n")},
		"packages/fast/fast.deb":  {Data: []byte("f")},
	}
	cmds := stubInstaller(t, `case "$1" in *slow.deb) sleep 30;; esac; echo "done"`)
	rec := NewRecorder()
	d := New(resource.NewFSProvider(fsys), Options{
		Commands:           cmds,
		ScratchDir:         t.TempDir(),
		PreemptWaitTimeout: time.Nanosecond,
		KillWaitTimeout:    5 * time.Second,
		SpawnTimeout:       2 * time.Second,
	}, rec.Handler())
	t.Cleanup(func() { _ = d.Close() })
	require.True(t, d.LoadPackages())

	d.InstallPackage("Slow")
	first := d.Session()
	require.Equal(t, StateRunning, first.State())

	d.InstallPackage("Fast")

	// The preempt wait is too short to see the kill land; the second kill
	// before spawning must wait until the first installer is reaped
	require.NotNil(t, first.ExitState(), "first installer should be reaped before the second spawns")
	assert.False(t, first.ExitState().Exited(), "first installer should have been killed by a signal")
	assert.False(t, first.running())

	d.Wait()
	assert.Equal(t, StateSucceeded, d.Session().State())
}

func TestClose_WithStalledEventConsumer(t *testing.T) {
	cmds := stubInstaller(t, `i=0; while [ $i -lt 200 ]; do echo "line $i"; sleep 0.01; i=$((i+1)); done; sleep 30`)
	events := make(chan Event, 100)
	d := New(resource.NewFSProvider(editorFS()), Options{
		Commands:        cmds,
		ScratchDir:      t.TempDir(),
		KillWaitTimeout: 200 * time.Millisecond,
	}, ChannelHandler(events))
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	s := d.Session()
	require.NotNil(t, s)

	// Nobody reads the channel, so the installer's output fills it
	require.Eventually(t, func() bool { return len(events) == cap(events) }, 10*time.Second, 10*time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- d.Close() }()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked behind a stalled event handler")
	}
	assert.Nil(t, d.Session())

	// Draining frees the blocked delivery; the killed installer is then reaped
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-events:
			case <-stop:
				return
			}
		}
	}()

	require.Eventually(t, func() bool { return s.ExitState() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, s.ExitState().Exited())
}

func TestClose_CancelledChannelHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 1)
	cmds := stubInstaller(t, `i=0; while [ $i -lt 50 ]; do echo "line $i"; sleep 0.01; i=$((i+1)); done; sleep 30`)
	d := New(resource.NewFSProvider(editorFS()), Options{
		Commands:        cmds,
		ScratchDir:      t.TempDir(),
		KillWaitTimeout: 2 * time.Second,
	}, ChannelHandlerContext(ctx, events))
	require.True(t, d.LoadPackages())

	// The first event fills the channel; the rest wait until cancel
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	d.InstallPackage("Editor")
	s := d.Session()
	require.NotNil(t, s)

	require.NoError(t, d.Close())
	require.NotNil(t, s.ExitState(), "installer should be reaped once delivery is cancelled")
	assert.Equal(t, EventStarted, (<-events).Type)
}

func TestInstallPackage_ReusesScratchDir(t *testing.T) {
	cmds := stubInstaller(t, "exit 0")
	rec := NewRecorder()
	d := New(resource.NewFSProvider(editorFS()), Options{Commands: cmds}, rec.Handler())
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	d.Wait()
	firstDir := d.Session().scratchDir

	d.InstallPackage("Editor")
	d.Wait()
	assert.Equal(t, firstDir, d.Session().scratchDir)
	assert.DirExists(t, firstDir)

	require.NoError(t, d.Close())
	assert.NoDirExists(t, firstDir, "Close removes a scratch directory the driver created")
}

func TestClose_KillsRunningInstaller(t *testing.T) {
	d, _, _ := newTestDriver(t, editorFS(), stubInstaller(t, "sleep 30"))
	require.True(t, d.LoadPackages())

	d.InstallPackage("Editor")
	s := d.Session()
	require.Equal(t, StateRunning, s.State())

	require.NoError(t, d.Close())

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session should be over after Close")
	}
	assert.Nil(t, d.Session())
}

func TestNew_AppliesDefaults(t *testing.T) {
	d := New(resource.NewFSProvider(fstest.MapFS{}), Options{}, nil)

	assert.Equal(t, "packages", d.opts.Root)
	assert.Equal(t, syscmd.Default(), d.opts.Commands)
	assert.Equal(t, time.Second, d.opts.KillWaitTimeout)
	assert.Equal(t, 3*time.Second, d.opts.PreemptWaitTimeout)
	assert.Equal(t, 5*time.Second, d.opts.SpawnTimeout)
}
