package downloader

import (
	"fmt"
	"math"
	"time"
)

var sizeUnits = []string{"", "K", "M", "G", "T", "P", "E", "Z"}

// ByteCount is any value FormatSize can render. float64 covers sizes past the int64 range.
type ByteCount interface {
	~int64 | ~uint64 | ~float64
}

// FormatSize renders a byte count with 1024 scaling, e.g. "1.50 Go".
func FormatSize[T ByteCount](bytes T) string {
	value := float64(bytes)
	for _, unit := range sizeUnits {
		if math.Abs(value) < 1024 {
			return fmt.Sprintf("%.2f %so", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f Yo", value)
}

// FormatETA renders HH:MM:SS. A day or more is shown as 23:59:59.
func FormatETA(d time.Duration) string {
	if d >= 24*time.Hour {
		return "23:59:59"
	}
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
