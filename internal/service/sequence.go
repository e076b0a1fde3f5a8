package service

import (
	"fmt"
	"strconv"
	"strings"
)

// NextSequentialID returns the key following latest for prefix. Keys are the
// prefix followed by at least three digits. An empty latest, or one that does
// not have that shape, restarts the sequence at <prefix>001.
func NextSequentialID(prefix, latest string) string {
	first := prefix + "001"
	if latest == "" || !strings.HasPrefix(latest, prefix) {
		return first
	}

	digits := latest[len(prefix):]
	if len(digits) < 3 {
		return first
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return first
		}
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return first
	}
	return fmt.Sprintf("%s%03d", prefix, n+1)
}

// sequentialAssigner binds prefix for use as a repository.KeyAssigner.
func sequentialAssigner(prefix string) func(latest string) string {
	return func(latest string) string {
		return NextSequentialID(prefix, latest)
	}
}
