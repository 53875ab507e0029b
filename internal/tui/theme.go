package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Dynatrace color palette
var (
	// Primary Dynatrace color
	DynatraceBlue = tcell.NewRGBColor(20, 150, 255) // #1496FF

	// Accent
	DynatraceGreen = tcell.NewRGBColor(115, 190, 40) // #73BE28

	// Status colors
	SuccessGreen  = tcell.NewRGBColor(34, 197, 94) // #22C55E
	ErrorRed      = tcell.NewRGBColor(239, 68, 68) // #EF4444
	WarningYellow = tcell.NewRGBColor(234, 179, 8) // #EAB308

	// Additional UI colors
	White     = tcell.ColorWhite
	Black     = tcell.ColorBlack
	LightGray = tcell.ColorLightGray
)

// Symbols and icons
const (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolWarning  = "⚠"
	SymbolSelected = "▸"
	SymbolBullet   = "•"
)

// StatusColor returns the appropriate color for a backup status.
func StatusColor(status string) tcell.Color {
	switch status {
	case "success":
		return SuccessGreen
	case "failed", "timeout":
		return ErrorRed
	case "cancelled":
		return WarningYellow
	default:
		return LightGray
	}
}

// StatusSymbol returns the appropriate symbol for a backup status.
func StatusSymbol(status string) string {
	switch status {
	case "success":
		return SymbolSuccess
	case "failed", "timeout":
		return SymbolError
	case "cancelled":
		return SymbolWarning
	default:
		return SymbolBullet
	}
}
