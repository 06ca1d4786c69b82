package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/marketmon/internal/catalog"
	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
)

const (
	// skeletonCards is how many placeholders render while loading.
	skeletonCards = 8
	cardWidth     = 30 // including border
	maxColumns    = 4
	descLines     = 2
)

func renderScreen(a App) string {
	s := a.state
	width := max(a.width, 40)

	sections := []string{
		renderHeader(s, width),
		renderSearchBar(a, width),
		renderStatusPanels(s, width),
		renderBody(s, width, a.spinner.View()),
		renderStatusBar(a.input.Focused(), width),
	}
	return strings.Join(sections, "\n")
}

func renderHeader(s controller.State, width int) string {
	title := Header.Render("Marketplace Resilience Monitor")
	badge := StableBadge.Render("Stable environment")
	if s.Chaos {
		badge = ChaosBadge.Render("Chaos Monkey ACTIVE")
	}
	gap := width - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	line := title + strings.Repeat(" ", gap) + badge
	return line + "\n" + Subtitle.Render("Watching the health of the marketplace integration")
}

func renderSearchBar(a App, width int) string {
	style := SearchBar
	if a.input.Focused() {
		style = SearchBarFocused
	}
	return style.Width(width - 2).Render(a.input.View())
}

// renderStatusPanels draws the status, last observation and telemetry panels
// side by side, or stacked when the terminal is narrow.
func renderStatusPanels(s controller.State, width int) string {
	panels := []string{
		statusPanel(s),
		observationPanel(s.Stats),
		telemetryPanel(s.Stats),
	}

	if width < 78 {
		for i, p := range panels {
			panels[i] = Panel.Width(width - 2).Render(p)
		}
		return lipgloss.JoinVertical(lipgloss.Left, panels...)
	}
	w := width/3 - 2
	for i, p := range panels {
		panels[i] = Panel.Width(w).Render(p)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func statusPanel(s controller.State) string {
	h := s.Health()
	label := HealthOK.Render("● " + h.String())
	if h != controller.HealthOperational {
		label = HealthDegraded.Render("● " + h.String())
	}
	note := "Watching real network and API failures while keeping the app usable."
	if s.Chaos {
		note = "Failures are injected on purpose to exercise the error path."
	}
	return PanelTitle.Render("SYSTEM STATUS") + "\n" + label + "\n" + PanelNote.Render(note)
}

func observationPanel(st controller.Stats) string {
	query := st.LastQuery
	if query == "" {
		query = "—"
	}
	return PanelTitle.Render("LAST OBSERVATION") + "\n" +
		PanelValue.Render(query) + "\n" +
		PanelNote.Render(updatedLabel(st))
}

// updatedLabel describes how long ago the last cycle completed.
func updatedLabel(st controller.Stats) string {
	if st.LastUpdatedAt.IsZero() {
		return "Waiting for first search."
	}
	if st.LastUpdatedSecondsAgo == 0 {
		return "Updated just now"
	}
	return fmt.Sprintf("Updated %d s ago", st.LastUpdatedSecondsAgo)
}

func telemetryPanel(st controller.Stats) string {
	return PanelTitle.Render("TELEMETRY") + "\n" +
		fmt.Sprintf("Successes %s  Failures %s", SuccessCount.Render(fmt.Sprint(st.SuccessCount)), ErrorCount.Render(fmt.Sprint(st.ErrorCount))) + "\n" +
		PanelNote.Render("Last latency ") + PanelValue.Render(latencyLabel(st))
}

// latencyLabel renders the last latency in whole milliseconds, or "—".
func latencyLabel(st controller.Stats) string {
	if !st.HasLatency {
		return "—"
	}
	return fmt.Sprintf("%d ms", st.LastLatency.Round(time.Millisecond).Milliseconds())
}

func renderBody(s controller.State, width int, spin string) string {
	switch {
	case s.Err != nil:
		return renderError(s.Err, s.Chaos, width)
	case s.Loading:
		return spin + " Searching for " + CardTitle.Render(s.Query) + "...\n" + renderSkeletonGrid(width)
	case len(s.Products) == 0:
		return renderEmpty(width)
	default:
		return renderGrid(s.Products, width)
	}
}

func columns(width int) int {
	cols := width / cardWidth
	if cols < 1 {
		cols = 1
	}
	if cols > maxColumns {
		cols = maxColumns
	}
	return cols
}

func renderGrid(products []catalog.Product, width int) string {
	cards := make([]string, len(products))
	for i, p := range products {
		cards[i] = renderCard(p)
	}
	return layoutGrid(cards, columns(width))
}

func renderSkeletonGrid(width int) string {
	cards := make([]string, skeletonCards)
	for i := range cards {
		cards[i] = renderSkeletonCard()
	}
	return layoutGrid(cards, columns(width))
}

func layoutGrid(cards []string, cols int) string {
	var rows []string
	for i := 0; i < len(cards); i += cols {
		end := min(i+cols, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCard(p catalog.Product) string {
	inner := cardWidth - 4 // border + padding
	lines := []string{
		CardTitle.Render(truncateRunes(p.Title, inner)),
	}
	for _, l := range wrapLines(p.Description, inner, descLines) {
		lines = append(lines, CardText.Render(l))
	}
	for len(lines) < 1+descLines {
		lines = append(lines, "")
	}
	lines = append(lines,
		CardPrice.Render(p.PriceFormatted),
		CardMeta.Render(truncateRunes(fmt.Sprintf("ID: %d  %s", p.ID, p.Thumbnail), inner)),
	)
	return Card.Width(cardWidth - 2).Render(strings.Join(lines, "\n"))
}

func renderSkeletonCard() string {
	inner := cardWidth - 4
	bar := func(n int) string { return SkeletonBar.Render(strings.Repeat("░", n)) }
	lines := []string{
		bar(inner * 5 / 6),
		bar(inner * 2 / 3),
		"",
		bar(inner / 3),
		bar(inner / 2),
	}
	return Card.Width(cardWidth - 2).Render(strings.Join(lines, "\n"))
}

func renderError(f fetch.Failure, chaos bool, width int) string {
	msg := f.Error()
	if msg == "" {
		msg = "An unexpected error occurred while talking to the marketplace."
	}
	hint := "The app is still operational. You can retry without restarting."
	if httpErr, ok := f.(*fetch.HTTPError); ok && httpErr.NotFound() {
		hint = "Nothing matched this search. Press / to try another term."
	}
	if chaos {
		hint = "Chaos Monkey is injecting artificial failures. Press c to turn it off and check the stable behaviour."
	}
	body := ErrorTitle.Render("Failed to query the marketplace.") + "\n\n" +
		msg + "\n" +
		PanelNote.Render(hint) + "\n\n" +
		StatusBarKey.Render("r") + StatusBarText.Render(" try again")
	return ErrorPanel.Width(width - 2).Render(body)
}

func renderEmpty(width int) string {
	body := PanelValue.Render("No products found.") + "\n" +
		PanelNote.Render("Adjust the search term or turn off chaos mode to check the normal behaviour.")
	return EmptyPanel.Width(width - 2).Render(body)
}

func renderStatusBar(searching bool, width int) string {
	var hints []string
	if searching {
		hints = []string{"enter:search", "esc:cancel", "↑/↓:recent"}
	} else {
		hints = []string{"/:search", "r:retry", "c:chaos", "D:debug", "q:quit"}
	}
	var b strings.Builder
	for i, h := range hints {
		if i > 0 {
			b.WriteString("  ")
		}
		k, desc, _ := strings.Cut(h, ":")
		b.WriteString(StatusBarKey.Render(k) + StatusBarText.Render(":"+desc))
	}
	return StatusBar.Width(width).Render(b.String())
}

// truncateRunes shortens s to n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// wrapLines word-wraps s to width and keeps at most n lines; the last kept
// line is truncated when text remains.
func wrapLines(s string, width, n int) []string {
	words := strings.Fields(s)
	var lines []string
	var cur string
	for i, w := range words {
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) <= width:
			cur += " " + w
		default:
			lines = append(lines, truncateRunes(cur, width))
			cur = w
		}
		if len(lines) == n {
			last := lines[n-1]
			if i < len(words) {
				last = truncateRunes(last+" "+strings.Join(words[i:], " "), width)
			}
			lines[n-1] = last
			return lines
		}
	}
	if cur != "" {
		lines = append(lines, truncateRunes(cur, width))
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
