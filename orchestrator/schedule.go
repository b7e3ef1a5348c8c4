package orchestrator

// InWindow reports whether hour falls inside the processing window
// [startHour, endHour). An overnight window (startHour > endHour, e.g.
// 22-6) wraps around midnight: the file is in-window when the hour is at
// or after startHour, or before endHour.
func InWindow(startHour, endHour, hour int) bool {
	if startHour <= endHour {
		return hour >= startHour && hour < endHour
	}
	return hour >= startHour || hour < endHour
}
