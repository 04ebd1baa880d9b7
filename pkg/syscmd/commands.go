// Package syscmd builds the privileged package manager command lines.
package syscmd

// Default tools used on Debian-based systems.
const (
	DefaultLauncher = "pkexec"
	DefaultTool     = "dpkg"
	DefaultUpdater  = "apt"
)

// Commands describes the privileged tools the installer shells out to.
type Commands struct {
	// Launcher elevates privileges (e.g., "pkexec"). Empty runs Tool directly.
	Launcher string `yaml:"launcher"`

	// Tool installs local archives (e.g., "dpkg")
	Tool string `yaml:"tool"`

	// Updater refreshes package indexes (e.g., "apt")
	Updater string `yaml:"updater"`
}

// Default returns the pkexec/dpkg/apt command set.
func Default() Commands {
	return Commands{
		Launcher: DefaultLauncher,
		Tool:     DefaultTool,
		Updater:  DefaultUpdater,
	}
}

// Install returns the command prefix that installs local archives.
// Archive paths are appended by the caller.
func (c Commands) Install() []string {
	return c.elevated(c.Tool, "-i")
}

// Remove returns the command prefix that removes installed packages.
func (c Commands) Remove() []string {
	return c.elevated(c.Tool, "-r")
}

// Update returns the command that refreshes package indexes.
func (c Commands) Update() []string {
	return c.elevated(c.Updater, "update")
}

func (c Commands) elevated(args ...string) []string {
	cmd := make([]string, 0, len(args)+1)
	if c.Launcher != "" {
		cmd = append(cmd, c.Launcher)
	}
	return append(cmd, args...)
}
