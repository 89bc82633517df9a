package cli

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

// FormatAvailability returns a colored availability word.
func FormatAvailability(available bool, color bool) string {
	word, code := "unavailable", ColorRed
	if available {
		word, code = "available", ColorGreen
	}
	if !color {
		return word
	}
	return code + word + ColorReset
}

// FormatState returns a colored state string.
func FormatState(state string, color bool) string {
	if !color || state != "unchecked" {
		return state
	}
	return ColorYellow + state + ColorReset
}
