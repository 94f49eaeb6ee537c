// Package memory samples the process resident set size, best effort.
package memory

import (
	"os"
	"strconv"
	"strings"
)

// ResidentMB returns the resident memory of this process in megabytes.
// The second return value is false when the figure is unavailable on this
// platform; that is never an error.
func ResidentMB() (float64, bool) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, false
	}
	pages, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	bytes := pages * int64(os.Getpagesize())
	return float64(bytes) / (1 << 20), true
}
