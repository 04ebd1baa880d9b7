package wizard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
)

// Run shows the wizard in the alternate screen until the user quits and
// returns how the last installation ended.
func Run(installer Installer, events <-chan install.Event, opts Options) (Outcome, error) {
	m := New(installer, events, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return OutcomeNone, fmt.Errorf("wizard UI error: %w", err)
	}

	model, ok := finalModel.(*Model)
	if !ok {
		return OutcomeNone, fmt.Errorf("unexpected model type")
	}

	return model.Outcome(), nil
}
