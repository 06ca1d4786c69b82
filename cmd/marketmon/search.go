package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/abelbrown/marketmon/internal/controller"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one fetch cycle and print the result",
	Long: `search runs a single fetch cycle outside the TUI, with the same simulated
delay, timeout and chaos behaviour, and prints the products found.

The cycle is recorded to the event log, metrics and history like any other.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the final state as JSON")
}

func runSearch(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return errors.New("query must not be blank")
	}
	// Avoid a startup cycle for the configured initial query.
	cfg.InitialQuery = q

	rt, err := newRuntime(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctrl := rt.newController(nil)
	defer ctrl.Stop()

	ctrl.Start(cmd.Context())
	ctrl.Wait()
	s := ctrl.Snapshot()

	out := cmd.OutOrStdout()
	if searchJSON {
		if err := writeStateJSON(out, s); err != nil {
			return err
		}
	} else {
		writeStateTable(out, s)
	}
	if s.Err != nil {
		return s.Err
	}
	return nil
}

type searchOutput struct {
	Query     string          `json:"query"`
	Chaos     bool            `json:"chaos"`
	Health    string          `json:"health"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	LatencyMs *int64          `json:"latency_ms,omitempty"`
	Products  []productOutput `json:"products"`
}

type productOutput struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Formatted   string  `json:"price_formatted"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Description string  `json:"description,omitempty"`
}

func writeStateJSON(w io.Writer, s controller.State) error {
	o := searchOutput{
		Query:    s.Query,
		Chaos:    s.Chaos,
		Health:   s.Health().String(),
		Products: make([]productOutput, 0, len(s.Products)),
	}
	if s.Err != nil {
		o.Error = s.Err.Error()
		o.ErrorKind = string(s.Err.Kind())
	}
	if s.Stats.HasLatency {
		ms := s.Stats.LastLatency.Milliseconds()
		o.LatencyMs = &ms
	}
	for _, p := range s.Products {
		o.Products = append(o.Products, productOutput{
			ID:          p.ID,
			Title:       p.Title,
			Price:       p.Price,
			Formatted:   p.PriceFormatted,
			Thumbnail:   p.Thumbnail,
			Description: p.Description,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func writeStateTable(w io.Writer, s controller.State) {
	latency := "—"
	if s.Stats.HasLatency {
		latency = fmt.Sprintf("%d ms", s.Stats.LastLatency.Milliseconds())
	}
	fmt.Fprintf(w, "query: %q  health: %s  latency: %s\n", s.Query, s.Health(), latency)
	if s.Err != nil {
		fmt.Fprintf(w, "error: %s\n", s.Err)
		return
	}
	if len(s.Products) == 0 {
		fmt.Fprintln(w, "no products found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRICE\tTITLE")
	for _, p := range s.Products {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.PriceFormatted, p.Title)
	}
	tw.Flush()
}
