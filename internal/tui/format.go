package tui

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/opensensing/pushdash/internal/catalog"
)

// ruleTarget resolves a rule's raw target ids to "device: sensor". Rules may
// outlive the catalog entries they point at; the raw id is shown on a miss.
func ruleTarget(cat *catalog.Catalog, deviceID, sensorID string) string {
	return cat.ResolveTarget(deviceID, sensorID).Title()
}

func formatLastPush(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func formatCount(n int64) string {
	return humanize.Comma(n)
}
