package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildResultKey places a result file under its UTC creation date.
func BuildResultKey(fileName string, createdAt time.Time) (string, error) {
	if !fileNamePattern.MatchString(fileName) {
		return "", fmt.Errorf("invalid result file name: %q", fileName)
	}
	ts := createdAt.UTC()
	return path.Join(
		fmt.Sprintf("%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fileName,
	), nil
}
