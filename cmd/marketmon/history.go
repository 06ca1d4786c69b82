package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/abelbrown/marketmon/internal/store"
)

var (
	historyLimit int
	historyKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded fetch cycles",
	Long: `history lists completed fetch cycles from the history database. It needs
a file-backed database (history_db / --history-db); the default in-memory
database does not outlive the process.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of cycles to list (0 for all)")
	historyCmd.Flags().IntVar(&historyKeep, "prune", -1, "Delete all but the newest N cycles before listing")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	if path == store.MemoryPath {
		return errors.New("history database is in-memory; point --history-db at a file")
	}

	st, err := store.Open(path)
	if err != nil {
		return errors.Wrap(err, "open history")
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if historyKeep >= 0 {
		n, err := st.Prune(historyKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d cycles\n", n)
	}

	entries, err := st.Recent(historyLimit)
	if err != nil {
		return err
	}
	counts, err := st.CountByOutcome()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPLETED\tGEN\tQUERY\tCHAOS\tOUTCOME\tLATENCY\tPRODUCTS")
	for _, e := range entries {
		latency := "—"
		if e.HasLatency {
			latency = fmt.Sprintf("%d ms", e.Latency.Milliseconds())
		}
		chaos := ""
		if e.Chaos {
			chaos = "on"
		}
		fmt.Fprintf(tw, "%s\t%d\t%q\t%s\t%s\t%s\t%d\n",
			e.CompletedAt.Local().Format("2006-01-02 15:04:05"),
			e.Generation, e.Query, chaos, e.Outcome, latency, e.Products)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	fmt.Fprint(out, "\ntotals:")
	for _, o := range outcomes {
		fmt.Fprintf(out, " %s=%d", o, counts[o])
	}
	fmt.Fprintln(out)
	return nil
}
