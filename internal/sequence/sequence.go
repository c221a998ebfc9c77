package sequence

import (
	"path/filepath"
	"regexp"
	"strconv"
)

var digitRun = regexp.MustCompile(`\d+`)

// Extract returns the value of the last run of decimal digits in the base
// name of path.
func Extract(path string) (int, bool) {
	runs := digitRun.FindAllString(filepath.Base(path), -1)
	if len(runs) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(runs[len(runs)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
