package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/abelbrown/marketmon/internal/otel"
)

var eventsFlags struct {
	tail   int
	follow bool
	kind   string
	level  string
	comp   string
	cid    string
	raw    bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the structured event log",
	Long: `events prints the JSONL event log written by marketmon. Filters combine:
an event is shown only if it matches every filter given.

Examples:
  marketmon events --kind cycle --level warn
  marketmon events -f --cid 3f0c...`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.IntVarP(&eventsFlags.tail, "tail", "n", 50, "Number of recent lines to show")
	f.BoolVarP(&eventsFlags.follow, "follow", "f", false, "Keep printing new events (like tail -f)")
	f.StringVar(&eventsFlags.kind, "kind", "", "Filter by event kind prefix (e.g. 'cycle')")
	f.StringVar(&eventsFlags.level, "level", "", "Minimum level: debug, info, warn, error")
	f.StringVar(&eventsFlags.comp, "comp", "", "Filter by component name")
	f.StringVar(&eventsFlags.cid, "cid", "", "Filter by cycle ID")
	f.BoolVar(&eventsFlags.raw, "json", false, "Output raw JSON lines")
}

// eventRecord mirrors otel.Event for decoding. Unknown fields are ignored so
// older logs stay readable.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	CycleID   string         `json:"cid"`
	Gen       uint64         `json:"gen"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Query     string         `json:"query"`
	Chaos     bool           `json:"chaos"`
	Outcome   string         `json:"outcome"`
	Status    int            `json:"status"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

type eventFilter struct {
	kind  string
	level string
	comp  string
	cid   string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.cid != "" && !strings.HasPrefix(ev.CycleID, f.cid) {
		return false
	}
	return true
}

func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-10s] %-18s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.CycleID != "" {
		parts = append(parts, fmt.Sprintf("cid=%.8s gen=%d", ev.CycleID, ev.Gen))
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Chaos {
		parts = append(parts, "chaos")
	}
	if ev.Outcome != "" {
		parts = append(parts, "outcome="+ev.Outcome)
	}
	if ev.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", ev.Status))
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	logPath := filepath.Join(dir, otel.EventFileName)

	f, err := os.Open(logPath)
	if err != nil {
		return errors.Wrapf(err, "event log not found at %s (run marketmon first)", logPath)
	}
	defer f.Close()

	filter := eventFilter{
		kind:  eventsFlags.kind,
		level: eventsFlags.level,
		comp:  eventsFlags.comp,
		cid:   eventsFlags.cid,
	}
	out := cmd.OutOrStdout()
	emit := func(l parsedLine) {
		if eventsFlags.raw {
			fmt.Fprintln(out, string(l.raw))
			return
		}
		fmt.Fprintln(out, formatEvent(l.ev))
	}

	lines, err := readTailLines(f, eventsFlags.tail, filter.match)
	if err != nil {
		return err
	}
	for _, l := range lines {
		emit(l)
	}
	if !eventsFlags.follow {
		return nil
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return followLines(ctx, f, filter.match, emit)
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r to EOF and returns the last n lines matching the
// filter. Lines that are not valid events are skipped.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) ([]parsedLine, error) {
	if n <= 0 {
		_, err := io.Copy(io.Discard, r)
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	// Allow large lines (Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	ring := make([]parsedLine, 0, n)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses its buffer
		rawCopy := append([]byte(nil), raw...)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring, scanner.Err()
}

// followLines polls r for appended lines until ctx is done.
func followLines(ctx context.Context, r io.Reader, match func(eventRecord) bool, emit func(parsedLine)) error {
	reader := bufio.NewReader(r)
	var pending []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err != nil {
			if err != io.EOF {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		line := trimLine(pending)
		pending = nil
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if match(ev) {
			emit(parsedLine{ev: ev, raw: line})
		}
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
