package doctor

// groupDefinition describes a check group and the checks it runs.
type groupDefinition struct {
	ID          string
	Name        string
	Description string
	CheckIDs    []string
}

// groupDefinitions lists the check groups in display order.
var groupDefinitions = []groupDefinition{
	{
		ID:          GroupInstaller,
		Name:        "Installer",
		Description: "Required to install the bundled packages",
		CheckIDs:    []string{IDLauncher, IDPackageTool, IDPackageDB},
	},
	{
		ID:          GroupMaintenance,
		Name:        "Maintenance",
		Description: "Optional tools for keeping packages up to date",
		CheckIDs:    []string{IDUpdater},
	},
}

// GetGroupDefinition returns the definition for a specific group.
func GetGroupDefinition(groupID string) (groupDefinition, bool) {
	for _, def := range groupDefinitions {
		if def.ID == groupID {
			return def, true
		}
	}
	return groupDefinition{}, false
}

// GetAllGroupIDs returns all group IDs in display order.
func GetAllGroupIDs() []string {
	ids := make([]string, len(groupDefinitions))
	for i, def := range groupDefinitions {
		ids[i] = def.ID
	}
	return ids
}
