package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/samples"
)

var (
	sampleQuery samples.Query
	sampleRaw   bool
	clearYes    bool
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Inspect or clear the sample store",
	Long: `Samples works with the SQLite store filled by runs with
--collect-samples or --mode sample-only. The store path comes from
samples.db_path in the configuration, or --samples-db.

Example:
  legacymigrate samples stats
  legacymigrate samples query --entity object --reason warning --limit 5
  legacymigrate samples clear --yes`,
}

var samplesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sample counts by entity type and reason",
	RunE:  runSamplesStats,
}

var samplesQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored samples",
	RunE:  runSamplesQuery,
}

var samplesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored sample",
	RunE:  runSamplesClear,
}

func init() {
	samplesQueryCmd.Flags().StringVar(&sampleQuery.EntityType, "entity", "", "Entity type, e.g. object")
	samplesQueryCmd.Flags().StringVar(&sampleQuery.Reason, "reason", "",
		"Reason (success, warning, edge) or reason:detail")
	samplesQueryCmd.Flags().StringVar(&sampleQuery.Language, "language", "", "Legacy language code")
	samplesQueryCmd.Flags().StringVar(&sampleQuery.SourceDB, "source-db", "", "Legacy schema")
	samplesQueryCmd.Flags().IntVar(&sampleQuery.Limit, "limit", samples.DefaultQueryLimit, "Maximum samples to print")
	samplesQueryCmd.Flags().BoolVar(&sampleRaw, "raw", false, "Print the stored row for each sample")

	samplesClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deletion")

	samplesCmd.AddCommand(samplesStatsCmd, samplesQueryCmd, samplesClearCmd)
	rootCmd.AddCommand(samplesCmd)
}

// openSampleStore opens the store named by --samples-db or the config file.
func openSampleStore() (*samples.Store, config.SamplesConfig, error) {
	cfg := config.DefaultConfig()
	if samplesDB == "" {
		loaded, err := config.Load(GetConfigFile())
		if err != nil {
			return nil, cfg.Samples, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyOverrides(GetCLIOverrides())

	store, err := samples.Open(cfg.Samples.DBPath)
	if err != nil {
		return nil, cfg.Samples, err
	}
	return store, cfg.Samples, nil
}

func runSamplesStats(cmd *cobra.Command, args []string) error {
	store, _, err := openSampleStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := samples.NewReader(store).Stats(cmd.Context())
	if err != nil {
		return err
	}

	printHeader("Sample Store: %s", store.Path())
	fmt.Fprintf(outputWriter, "\n  Total samples: %d\n\n", st.Total)
	if st.Total == 0 {
		return nil
	}

	printSection("By Entity Type")
	printCounts(st.ByEntityType)
	fmt.Fprintln(outputWriter)
	printSection("By Reason")
	printCounts(st.ByReason)
	fmt.Fprintln(outputWriter)
	printSection("By Category")
	printCounts(st.ByCategory)
	return nil
}

func printCounts(counts map[string]int) {
	t := &table{header: []string{"NAME", "COUNT"}}
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		t.add(k, fmt.Sprint(counts[k]))
	}
	t.render(outputWriter, "  ")
}

func runSamplesQuery(cmd *cobra.Command, args []string) error {
	store, _, err := openSampleStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := samples.NewReader(store).Query(cmd.Context(), sampleQuery)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(outputWriter, "No samples match")
		return nil
	}

	t := &table{header: []string{"ID", "ENTITY", "REASON", "LANG", "SOURCE", "COLLECTED"}}
	for _, r := range recs {
		lang := "-"
		if r.Language != nil {
			lang = *r.Language
		}
		t.add(fmt.Sprint(r.ID), r.EntityType, r.Reason, lang, r.SourceDB,
			r.CollectedAt.Format("2006-01-02 15:04:05"))
	}
	t.render(outputWriter, "")

	if sampleRaw {
		for _, r := range recs {
			row, err := samples.ParseRawData(r)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(row, "  ", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(outputWriter, "\n#%d %s\n  %s\n", r.ID, dimStyle.Sprint(r.Hash), out)
		}
	}
	fmt.Fprintf(outputWriter, "\n%d sample(s)\n", len(recs))
	return nil
}

func runSamplesClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to clear samples without --yes")
	}
	store, cfg, err := openSampleStore()
	if err != nil {
		return err
	}
	collector := samples.NewCollector(store, cfg, nil)
	defer collector.Close()

	n, err := samples.NewReader(store).TotalCount(cmd.Context())
	if err != nil {
		return err
	}
	if err := collector.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(outputWriter, "%s Cleared %d sample(s) in %s\n", okStyle.Sprint("✓"), n, store.Path())
	return nil
}
