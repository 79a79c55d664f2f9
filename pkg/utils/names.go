package utils

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// ArtifactTimestampLayout is the timestamp suffix on generated report files.
const ArtifactTimestampLayout = "20060102_150405"

// DayBucketLayout is the per-day output directory name.
const DayBucketLayout = "2006-01-02"

// NormalizeSlug creates a file-name-friendly slug using the gosimple/slug
// library, which handles all Unicode characters properly.
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}

// ArtifactBaseName derives the artifact name stem from the job's SQL source
// reference, falling back to the job name when the reference is blank.
func ArtifactBaseName(sqlFileName, jobName string) string {
	base := strings.TrimSpace(sqlFileName)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	if base == "" {
		base = jobName
	}
	if s := NormalizeSlug(base); s != "" {
		return s
	}
	return "report"
}

// ArtifactFileName builds the deterministic artifact file name for a run.
func ArtifactFileName(sqlFileName, jobName string, at time.Time) string {
	return ArtifactBaseName(sqlFileName, jobName) + "_" + at.Format(ArtifactTimestampLayout) + ".xlsx"
}
