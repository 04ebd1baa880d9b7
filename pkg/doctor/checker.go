package doctor

import (
	"sync"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/syscmd"
)

// Checker provides dependency checking functionality.
type Checker struct {
	executor CommandExecutor
	commands syscmd.Commands
	dbPath   string
}

// NewChecker creates a new Checker for the given commands using the real
// command executor.
func NewChecker(commands syscmd.Commands) *Checker {
	return NewCheckerWithExecutor(&RealExecutor{}, commands)
}

// NewCheckerWithExecutor creates a new Checker with a custom executor (for testing).
func NewCheckerWithExecutor(exec CommandExecutor, commands syscmd.Commands) *Checker {
	return &Checker{
		executor: exec,
		commands: commands,
		dbPath:   DefaultPackageDB,
	}
}

// SetPackageDB sets the path of the package database to check.
func (c *Checker) SetPackageDB(path string) {
	c.dbPath = path
}

// CheckAll runs all checks and returns groups with results.
func (c *Checker) CheckAll() []CheckGroup {
	var result []CheckGroup
	for _, id := range GetAllGroupIDs() {
		result = append(result, c.CheckGroup(id))
	}
	return result
}

// CheckAllAsync runs all groups concurrently and returns them in display order.
func (c *Checker) CheckAllAsync() []CheckGroup {
	ids := GetAllGroupIDs()
	result := make([]CheckGroup, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(idx int, groupID string) {
			defer wg.Done()
			result[idx] = c.CheckGroup(groupID)
		}(i, id)
	}

	wg.Wait()
	return result
}

// CheckGroup runs all checks for a specific group.
func (c *Checker) CheckGroup(groupID string) CheckGroup {
	def, ok := GetGroupDefinition(groupID)
	if !ok {
		return CheckGroup{
			ID:   groupID,
			Name: "Unknown",
		}
	}

	group := CheckGroup{
		ID:          groupID,
		Name:        def.Name,
		Description: def.Description,
	}

	for _, checkID := range def.CheckIDs {
		group.Checks = append(group.Checks, c.runCheck(checkID))
	}

	return group
}

// runCheck runs a specific check by ID.
func (c *Checker) runCheck(checkID string) Check {
	switch checkID {
	case IDLauncher:
		return CheckLauncher(c.executor, c.commands.Launcher)
	case IDPackageTool:
		return CheckPackageTool(c.executor, c.commands.Tool)
	case IDPackageDB:
		return CheckPackageDB(c.executor, c.dbPath)
	case IDUpdater:
		return CheckUpdater(c.executor, c.commands.Updater)
	default:
		return Check{
			ID:      checkID,
			Name:    checkID,
			Status:  StatusError,
			Message: "unknown check",
		}
	}
}

// GetCheck runs a single check by ID.
func (c *Checker) GetCheck(checkID string) Check {
	return c.runCheck(checkID)
}

// Summary represents an overall health summary.
type Summary struct {
	Total    int
	OK       int
	Missing  int
	Warnings int
	Errors   int
}

// GetSummary returns a summary of check results.
func (c *Checker) GetSummary(groups []CheckGroup) Summary {
	var summary Summary

	for _, group := range groups {
		for _, check := range group.Checks {
			summary.Total++
			switch check.Status {
			case StatusOK:
				summary.OK++
			case StatusMissing:
				summary.Missing++
			case StatusWarning:
				summary.Warnings++
			case StatusError:
				summary.Errors++
			}
		}
	}

	return summary
}

// HasIssues returns true if any checks are missing or failed.
func (c *Checker) HasIssues(groups []CheckGroup) bool {
	summary := c.GetSummary(groups)
	return summary.Missing > 0 || summary.Errors > 0
}

// Issues returns the checks that are missing or failed.
func Issues(groups []CheckGroup) []Check {
	var issues []Check
	for _, group := range groups {
		for _, check := range group.Checks {
			if check.Status == StatusMissing || check.Status == StatusError {
				issues = append(issues, check)
			}
		}
	}
	return issues
}
