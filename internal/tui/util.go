package tui

import (
	"fmt"
	"time"
)

func fmtDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	levels := []string{" ", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var sb string
	for _, v := range values {
		if max == 0 {
			sb += levels[0]
			continue
		}
		idx := (v * 7) / max
		if idx > 7 {
			idx = 7
		}
		sb += levels[idx]
	}
	return sb
}
