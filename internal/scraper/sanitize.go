package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const artifactTimeLayout = "20060102_150405"

// SanitizeName maps every character outside [A-Za-z0-9 _-] to '_', trims
// surrounding whitespace, then replaces spaces with underscores. The result
// is safe for use in artifact filenames.
func SanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

// ArtifactFilename builds the per-task artifact name:
// {sanitized_vendor}__{sanitized_location}__{yyyyMMdd_HHmmss}__{task8}.csv
// The task id fragment keeps names unique when the same vendor and location
// are captured twice within one second.
func ArtifactFilename(vendor, location string, capturedAt time.Time, taskID uuid.UUID) string {
	return fmt.Sprintf("%s__%s__%s__%x.csv",
		SanitizeName(vendor),
		SanitizeName(location),
		capturedAt.Format(artifactTimeLayout),
		taskID[:4],
	)
}
