// Package branding holds the coworker application identity and the color
// palette shared by the CLI banner and the TUI dashboard.
package branding

// Application identity constants.
const (
	AppName    = "Coworker"
	CLIName    = "Coworker Shell"
	BinaryName = "coworker"
)

// Palette in hex format for Lipgloss true color support.
const (
	// ColorAccent marks focused panels and in-progress states.
	ColorAccent = "#8B5CF6"
	// ColorTitleBg is the background of panel titles.
	ColorTitleBg = "#4C1D95"
	// ColorOK marks a running worker and completed actions.
	ColorOK = "#14B8A6"
	// ColorError marks a stopped worker and failed actions.
	ColorError = "#E11D48"
	ColorWhite = "#FFFFFF"
	// ColorLabel is used for field labels.
	ColorLabel = "#A1A1AA"
	// ColorMuted is used for help text.
	ColorMuted = "#71717A"
	// ColorBorder is the inactive panel border.
	ColorBorder = "#52525B"
)

// Banner is a compact ASCII mark for CLI startup display.
const Banner = `
   .-----------.
   | >_   [::] |
   '-----+-----'
      ___|___`

// StartupBanner returns the startup banner with the application name below it.
func StartupBanner() string {
	return Banner + "\n" +
		"  " + CLIName + "\n"
}
