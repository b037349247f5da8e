/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
	"time"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

func exportExtension(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return "yaml"
	default:
		return "json"
	}
}

// exportFilename names a download after the wheel and the moment it was saved.
func exportFilename(wheelID string, ts time.Time, format string) string {
	return fmt.Sprintf("namewheel-%s-%s.%s", wheelID, ts.UTC().Format("20060102T150405Z"), exportExtension(format))
}
