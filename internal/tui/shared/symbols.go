package shared

import (
	"os"
	"strings"
)

// unexported variables.
var (
	//nolint:gochecknoglobals // Terminal capabilities are detected once per process
	colorsDisabled = detectColorsDisabled()
	//nolint:gochecknoglobals // Terminal capabilities are detected once per process
	unicodeDisabled = detectUnicodeDisabled()
)

// ErrorSymbol returns a cross symbol with ASCII fallback
func ErrorSymbol() string {
	if unicodeDisabled {
		return "[X]"
	}

	return "✗"
}

// GetColorsDisabled reports whether styled output is disabled
func GetColorsDisabled() bool {
	return colorsDisabled
}

// PendingSymbol returns an empty circle with ASCII fallback
func PendingSymbol() string {
	if unicodeDisabled {
		return "[ ]"
	}

	return "○"
}

// SetColorsDisabledForTesting overrides color detection
func SetColorsDisabledForTesting(disabled bool) {
	colorsDisabled = disabled
}

// SuccessSymbol returns a check mark with ASCII fallback
func SuccessSymbol() string {
	if unicodeDisabled {
		return "[OK]"
	}

	return "✓"
}

func detectColorsDisabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	return os.Getenv("TERM") == "dumb"
}

func detectUnicodeDisabled() bool {
	if os.Getenv("TERM") == "dumb" {
		return true
	}

	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if value := os.Getenv(name); value != "" {
			return !strings.Contains(strings.ToUpper(value), "UTF")
		}
	}

	return false
}
