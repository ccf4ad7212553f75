package importer

import (
	"time"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

// ShouldImport reports whether a source's interval has run out. Inactive
// sources are never due and a source that was never imported always is.
func ShouldImport(src stockroom.Source, now time.Time) bool {
	if !src.IsActive {
		return false
	}
	if src.LastImportedAt == nil {
		return true
	}

	elapsed := int(now.Sub(*src.LastImportedAt) / time.Hour)
	return elapsed >= src.ImportIntervalHours
}

// AtPreferredTime reports whether now is the source's preferred minute of the
// day. Sources without a preference are always at the right time.
func AtPreferredTime(src stockroom.Source, now time.Time) bool {
	if src.PreferredImportTime == nil || *src.PreferredImportTime == "" {
		return true
	}

	return now.Format("15:04") == *src.PreferredImportTime
}

// Due combines both gates. now should already be in the scheduling timezone.
func Due(src stockroom.Source, now time.Time) bool {
	return ShouldImport(src, now) && AtPreferredTime(src, now)
}
