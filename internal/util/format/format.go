// Package format renders sizes and durations for terminal output.
package format

import (
	"fmt"
	"time"
)

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// HumanizeBytes renders a byte count with binary units, e.g. "1.5 MB".
func HumanizeBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b) / 1024
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, sizeUnits[unit])
}

// Clock renders an elapsed duration as mm:ss; minutes keep growing past 59.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// Seconds renders a processing time in seconds with one decimal, e.g. "12.3s".
func Seconds(f float64) string {
	return fmt.Sprintf("%.1fs", f)
}
