package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/cordon/internal/storage"
)

var (
	flagHistoryLimit int
	flagHistoryStats bool
	flagHistoryClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded deployment history",
	Long: `Display recent roadblock deployments with their outcomes.

Examples:
  cordon history
  cordon history --limit 50
  cordon history --stats
  cordon history --clear`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of deployments to show")
	historyCmd.Flags().BoolVar(&flagHistoryStats, "stats", false, "Show aggregated statistics instead of entries")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete all recorded deployments")
}

func runHistory(cmd *cobra.Command, args []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagHistoryClear {
		if err := store.ClearHistory(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("History cleared.")
		return
	}

	if flagHistoryStats {
		printStats(store)
		return
	}

	entries, err := store.RecentDeployments(flagHistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving history: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No deployments recorded yet.")
		fmt.Println()
		fmt.Println("Run 'cordon deploy' to record the first one.")
		return
	}

	fmt.Println("Recent deployments:")
	fmt.Println()
	fmt.Printf("  %-5s  %-16s  %-8s  %-5s  %-5s  %-9s  %-5s  %-6s  %s\n",
		"ID", "Date", "Variant", "Level", "Lanes", "Outcome", "Cops", "Time", "Strips")
	fmt.Printf("  %-5s  %-16s  %-8s  %-5s  %-5s  %-9s  %-5s  %-6s  %s\n",
		"--", "----", "-------", "-----", "-----", "-------", "----", "----", "------")

	for _, e := range entries {
		strips := "-"
		if len(e.Strips) > 0 {
			parts := make([]string, 0, len(e.Strips))
			for _, s := range e.Strips {
				parts = append(parts, fmt.Sprintf("%s=%s", s.Location, s.FinalState))
			}
			strips = strings.Join(parts, " ")
		}
		fmt.Printf("  %-5d  %-16s  %-8s  %-5d  %-5d  %-9s  +%d/-%d  %5.1fs  %s\n",
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Variant,
			e.Level,
			e.LanesBlocked,
			e.Outcome,
			e.CopsReleased,
			e.CopsKilled,
			e.DurationSecs,
			strips,
		)
	}
}

func printStats(store *storage.Store) {
	stats, err := store.GetDeploymentStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving statistics: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Deployment statistics:")
	fmt.Println()
	fmt.Printf("  Deployments:   %d\n", stats.Deployments)
	fmt.Printf("  Hits:          %d\n", stats.Hits)
	fmt.Printf("  Bypasses:      %d\n", stats.Bypasses)
	fmt.Printf("  Errors:        %d\n", stats.Errors)
	fmt.Printf("  Cops released: %d\n", stats.CopsReleased)
	fmt.Printf("  Cops killed:   %d\n", stats.CopsKilled)
	fmt.Printf("  Avg duration:  %.1fs\n", stats.AvgDuration)
	if !stats.LastDeployed.IsZero() {
		fmt.Printf("  Last deployed: %s\n", stats.LastDeployed.Format("2006-01-02 15:04"))
	}

	variants, err := store.GetVariantStats()
	if err != nil || len(variants) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("By variant:")
	fmt.Println()
	fmt.Printf("  %-10s  %-11s  %-5s  %-8s  %s\n", "Variant", "Deployments", "Hits", "Bypasses", "Killed")
	fmt.Printf("  %-10s  %-11s  %-5s  %-8s  %s\n", "-------", "-----------", "----", "--------", "------")
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := variants[name]
		fmt.Printf("  %-10s  %-11d  %-5d  %-8d  %d\n",
			v.Variant, v.Deployments, v.Hits, v.Bypasses, v.CopsKilled)
	}
}
