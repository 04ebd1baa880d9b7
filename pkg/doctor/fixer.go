package doctor

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Platform constants.
const (
	PlatformLinux = "linux"
)

// fixCommands defines platform-specific fix commands for each check.
var fixCommands = map[string]map[string]*FixCommand{
	IDLauncher: {
		PlatformLinux: {
			Description: "Install polkit's pkexec via apt",
			Command:     "sudo apt install -y pkexec",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
	IDPackageTool: {
		PlatformLinux: {
			Description: "Reinstall dpkg via apt",
			Command:     "sudo apt install --reinstall -y dpkg",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
	IDUpdater: {
		PlatformLinux: {
			Description: "Install apt via dpkg from the local cache",
			Command:     "sudo dpkg -i /var/cache/apt/archives/apt_*.deb",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
}

// GetFixCommand returns the fix command for a check on the given platform.
func GetFixCommand(checkID, platform string) *FixCommand {
	fixes, ok := fixCommands[checkID]
	if !ok {
		return nil
	}

	fix, ok := fixes[platform]
	if !ok {
		return nil
	}

	return fix
}

// Fixer provides functionality to run fix commands.
type Fixer struct {
	executor CommandExecutor
	copy     func(string) error
}

// NewFixer creates a new Fixer.
func NewFixer() *Fixer {
	return NewFixerWithExecutor(&RealExecutor{})
}

// NewFixerWithExecutor creates a new Fixer with a custom executor.
func NewFixerWithExecutor(exec CommandExecutor) *Fixer {
	return &Fixer{
		executor: exec,
		copy:     clipboard.WriteAll,
	}
}

// RunFix executes a fix command through the shell.
func (f *Fixer) RunFix(fix *FixCommand) error {
	if fix == nil {
		return fmt.Errorf("no fix command available")
	}

	output, err := f.executor.CombinedOutput("sh", "-c", fix.Command)
	if err != nil {
		return fmt.Errorf("fix failed: %w\nOutput: %s", err, string(output))
	}

	return nil
}

// CopyToClipboard copies the fix command to the system clipboard.
func (f *Fixer) CopyToClipboard(fix *FixCommand) error {
	if fix == nil {
		return fmt.Errorf("no fix command available")
	}

	if err := f.copy(fix.Command); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	return nil
}
