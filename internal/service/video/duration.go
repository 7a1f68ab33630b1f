package video

import "fmt"

// FormatDuration renders seconds as H:MM:SS, or M:SS when under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}

	return fmt.Sprintf("%d:%02d", m, s)
}
