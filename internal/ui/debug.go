package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/marketmon/internal/otel"
)

// debugPanelChrome is the border plus vertical padding of DebugPanel, in lines.
const debugPanelChrome = 4

const debugRecentEvents = 20

// debugOverlay renders cycle counters, the timeline of the latest cycle and
// the newest events. Empty when ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}
	now := time.Now()
	stats := ring.Stats()
	recent := ring.Last(debugRecentEvents)

	lines := []string{
		DebugHeaderStyle.Render("Cycle Stats"),
		fmt.Sprintf("  Cycles:     %d started, %d ok, %d failed, %d superseded",
			stats[otel.KindCycleStart], stats[otel.KindCycleSuccess],
			stats[otel.KindCycleError], stats[otel.KindCycleSuperseded]),
		fmt.Sprintf("  Input:      %d keys, %d chaos toggles", stats[otel.KindKeyPress], stats[otel.KindChaos]),
		fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()),
	}

	if cid := latestCycleID(recent); cid != "" {
		lines = append(lines, "", DebugHeaderStyle.Render("Latest Cycle "+truncateRunes(cid, 8)))
		for _, e := range ring.Cycle(cid) {
			lines = append(lines, "  "+eventLine(e, now, false))
		}
	}

	lines = append(lines, "", DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		lines = append(lines, "  "+eventLine(e, now, true))
	}

	if maxLines := max(height-debugPanelChrome, 1); len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	panelWidth := max(min(96, width-4), 20)
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// latestCycleID returns the cycle ID of the newest event that has one.
func latestCycleID(events []otel.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].CycleID != "" {
			return events[i].CycleID
		}
	}
	return ""
}

func eventLine(e otel.Event, now time.Time, withCycle bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6s  %-18s", formatAge(now.Sub(e.Time)), e.Kind)
	if e.Query != "" {
		b.WriteString("  " + truncateRunes(fmt.Sprintf("%q", e.Query), 24))
	}
	if e.Dur > 0 {
		fmt.Fprintf(&b, "  %dms", e.Dur.Milliseconds())
	}
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	if withCycle && e.CycleID != "" {
		b.WriteString("  cid:" + truncateRunes(e.CycleID, 8))
	}
	return b.String()
}

// formatAge renders d compactly. Negative ages (clock skew) print as 0ms.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func debugStatusBar(width int) string {
	return StatusBar.Width(width).Render("  [DEBUG]  " + StatusBarKey.Render("D") + StatusBarText.Render(":close"))
}
