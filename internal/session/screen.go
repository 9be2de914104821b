package session

// Screen names one of the application's views.
type Screen string

const (
	ScreenHome    Screen = "home"
	ScreenCamera  Screen = "camera"
	ScreenUpload  Screen = "upload"
	ScreenResults Screen = "results"
	ScreenHistory Screen = "history"
	ScreenDetail  Screen = "detail"
	ScreenPokedex Screen = "pokedex"
)

// Navigator tracks which screen is active and where closing the detail
// screen should return to. Primary navigation clears the top-level error
// banner; detail-specific errors are managed by the session.
type Navigator struct {
	current  Screen
	returnTo Screen
	banner   string
}

// NewNavigator starts at the home screen.
func NewNavigator() *Navigator {
	return &Navigator{current: ScreenHome, returnTo: ScreenResults}
}

// Current returns the active screen.
func (n *Navigator) Current() Screen {
	return n.current
}

// Go switches to a screen via primary navigation, clearing any top-level
// error banner.
func (n *Navigator) Go(s Screen) {
	n.banner = ""
	n.current = s
}

// set switches screens without touching the banner (component-driven
// transitions such as analysis success).
func (n *Navigator) set(s Screen) {
	n.current = s
}

// OpenDetail moves to the detail screen, remembering where back leads.
func (n *Navigator) OpenDetail(returnTo Screen) {
	n.returnTo = returnTo
	n.current = ScreenDetail
}

// CloseDetail returns to the screen recorded when detail was opened.
func (n *Navigator) CloseDetail() {
	n.current = n.returnTo
}

// Banner returns the top-level error banner, empty when none.
func (n *Navigator) Banner() string {
	return n.banner
}

// SetBanner records a top-level error message.
func (n *Navigator) SetBanner(msg string) {
	n.banner = msg
}

// ClearBanner dismisses the top-level error banner.
func (n *Navigator) ClearBanner() {
	n.banner = ""
}
