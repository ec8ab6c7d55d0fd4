package features

import (
	"strconv"
	"strings"
)

// Dispatch windows.
const (
	WindowMorning = "morning"
	WindowNoon    = "noon"
	WindowNight   = "night"
)

// DispatchWindow converts an "HH:MM" dispatch time to its window: hours
// 4 to 11 are morning, 12 to 19 noon, anything else night. Only the hour
// is read. An unparsable time yields noon and ok == false.
func DispatchWindow(hhmm string) (window string, ok bool) {
	head, _, _ := strings.Cut(hhmm, ":")
	hour, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return WindowNoon, false
	}

	switch {
	case hour >= 4 && hour < 12:
		return WindowMorning, true
	case hour >= 12 && hour < 20:
		return WindowNoon, true
	default:
		return WindowNight, true
	}
}
