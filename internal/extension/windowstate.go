package extension

import (
	"net/url"
	"path"
	"strings"

	"github.com/extraterm/extman/internal/when"
)

// WindowState is the process-wide snapshot of window focus and hyperlink
// hover context that command queries evaluate against. It is mutated by UI
// collaborators through the Manager's setters and may be temporarily
// substituted for the duration of a single customizer call.
type WindowState struct {
	// ActiveWindow is the id of the currently focused window, or "".
	ActiveWindow string
	// ActiveTerminal is the id of the currently focused terminal, or "".
	ActiveTerminal string
	// HoveredURL is the hyperlink currently under the pointer, or "".
	HoveredURL string
}

// whenVariables derives the ephemeral evaluation environment for "when"
// conditions from a window state snapshot. Built fresh for every query.
func whenVariables(state WindowState) when.Variables {
	vars := when.Variables{
		WindowFocus:   state.ActiveWindow != "",
		TerminalFocus: state.ActiveTerminal != "",
		HyperlinkURL:  state.HoveredURL,
	}

	if state.HoveredURL != "" {
		if u, err := url.Parse(state.HoveredURL); err == nil {
			vars.HyperlinkProtocol = u.Scheme
			vars.HyperlinkDomain = u.Hostname()
			vars.HyperlinkFileExtension = strings.TrimPrefix(path.Ext(u.Path), ".")
		}
	}

	return vars
}
