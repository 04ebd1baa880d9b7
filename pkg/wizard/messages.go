package wizard

import "github.com/jaspreet-dot-casa/pkgwizard/pkg/install"

// eventMsg wraps an install.Event for Bubble Tea.
type eventMsg install.Event

// eventsClosedMsg is sent when the event channel has been closed.
type eventsClosedMsg struct{}
