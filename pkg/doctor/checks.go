package doctor

import (
	"bytes"
	"os"
	"os/exec"
	"regexp"
	"runtime"
)

// DefaultPackageDB is the dpkg status database.
const DefaultPackageDB = "/var/lib/dpkg/status"

// CommandExecutor is an interface for executing commands, allowing for testing.
type CommandExecutor interface {
	LookPath(file string) (string, error)
	Run(name string, args ...string) (string, error)
	CombinedOutput(name string, args ...string) ([]byte, error)
	FileExists(path string) bool
}

// RealExecutor is the default command executor that uses the real system.
type RealExecutor struct{}

// LookPath finds the path to an executable.
func (e *RealExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its output.
func (e *RealExecutor) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if stderr.Len() > 0 {
			return stderr.String(), err
		}
		return stdout.String(), err
	}
	// Some tools print their version to stderr
	output := stdout.String()
	if output == "" {
		output = stderr.String()
	}
	return output, nil
}

// CombinedOutput runs a command and returns combined stdout and stderr.
func (e *RealExecutor) CombinedOutput(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// FileExists checks if a file exists.
func (e *RealExecutor) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// checkTool checks if binary is installed and gets its version.
func checkTool(exec CommandExecutor, id, binary, desc string, versionArgs []string, versionRegex *regexp.Regexp, fixCmd *FixCommand) Check {
	check := Check{
		ID:          id,
		Name:        binary,
		Description: desc,
		FixCommand:  fixCmd,
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		check.Status = StatusMissing
		check.Message = "not installed"
		return check
	}

	output, err := exec.Run(path, versionArgs...)
	if err != nil {
		// Present but the version flag failed; still usable
		check.Status = StatusOK
		check.Message = "installed (version unknown)"
		return check
	}

	check.Status = StatusOK
	if version := extractVersion(output, versionRegex); version != "" {
		check.Message = version
	} else {
		check.Message = "installed"
	}

	return check
}

var defaultVersionRegex = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?(?:-[a-zA-Z0-9]+)?)`)

// extractVersion extracts version string from command output.
func extractVersion(output string, regex *regexp.Regexp) string {
	if regex == nil {
		regex = defaultVersionRegex
	}

	matches := regex.FindStringSubmatch(output)
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// CheckLauncher checks the privilege launcher (pkexec by default).
// An empty launcher means the package tool runs unelevated.
func CheckLauncher(exec CommandExecutor, launcher string) Check {
	if launcher == "" {
		return Check{
			ID:          IDLauncher,
			Name:        "(none)",
			Description: "Privilege launcher",
			Status:      StatusWarning,
			Message:     "not configured; the package tool runs without elevation",
		}
	}

	return checkTool(
		exec,
		IDLauncher,
		launcher,
		"Privilege launcher",
		[]string{"--version"},
		regexp.MustCompile(`version (\d+(?:\.\d+)+)`),
		GetFixCommand(IDLauncher, runtime.GOOS),
	)
}

// CheckPackageTool checks the local archive installer (dpkg by default).
func CheckPackageTool(exec CommandExecutor, tool string) Check {
	return checkTool(
		exec,
		IDPackageTool,
		tool,
		"Installs local .deb archives",
		[]string{"--version"},
		regexp.MustCompile(`version (\d+\.\d+\.\d+)`),
		GetFixCommand(IDPackageTool, runtime.GOOS),
	)
}

// CheckUpdater checks the index updater (apt by default). The install flow
// never runs it, so a missing updater is only a warning.
func CheckUpdater(exec CommandExecutor, updater string) Check {
	check := checkTool(
		exec,
		IDUpdater,
		updater,
		"Refreshes package indexes",
		[]string{"--version"},
		regexp.MustCompile(`^\S+\s+(\d+\.\d+(?:\.\d+)?)`),
		GetFixCommand(IDUpdater, runtime.GOOS),
	)

	if check.Status == StatusMissing {
		check.Status = StatusWarning
		check.Message = "not installed (only needed for updates)"
	}

	return check
}

// CheckPackageDB checks that the dpkg status database exists.
func CheckPackageDB(exec CommandExecutor, dbPath string) Check {
	check := Check{
		ID:          IDPackageDB,
		Name:        "dpkg database",
		Description: "Installed package database",
	}

	if dbPath == "" {
		dbPath = DefaultPackageDB
	}

	if exec.FileExists(dbPath) {
		check.Status = StatusOK
		check.Message = dbPath
	} else {
		check.Status = StatusMissing
		check.Message = "no database at " + dbPath
	}

	return check
}
