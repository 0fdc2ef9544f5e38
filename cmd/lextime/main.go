package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/coolbeans/lextime/pkg/canon"
	"github.com/coolbeans/lextime/pkg/config"
	"github.com/coolbeans/lextime/pkg/conflict"
	"github.com/coolbeans/lextime/pkg/extract"
	"github.com/coolbeans/lextime/pkg/ingest"
	"github.com/coolbeans/lextime/pkg/report"
	"github.com/coolbeans/lextime/pkg/temporal"
	"github.com/coolbeans/lextime/pkg/types"
	"github.com/coolbeans/lextime/pkg/whatif"
)

var version = "0.1.0"

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "lextime",
		Short: "Temporal-deontic conflict audit for legal texts",
		Long: `Lextime audits dated versions of legal texts for contradictory
obligations, permissions, and prohibitions.

It ingests corpora of versioned legal texts and produces:
  - Structured norms extracted per section
  - Detected temporal-deontic conflicts with severity scores
  - Resolutions by legal interpretive canons
  - What-if answers for decision and conduct dates
  - Safety cards for audit trails`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lextime/config.yaml)")

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(whatifCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a corpus and split it into sections",
		Long: `Load every version of a corpus from the data directory and split the
texts into sections ready for extraction.

Example:
  lextime ingest --corpus eu_ai_act --output sections.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, _ := cmd.Flags().GetString("corpus")
			output, _ := cmd.Flags().GetString("output")
			if corpus == "" {
				return fmt.Errorf("--corpus flag is required")
			}

			settings, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			sections, err := ingest.NewIngestor(settings.DataDir).LoadCorpus(corpus)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d sections from %s\n", len(sections), corpus)

			if output == "" {
				output = filepath.Join(settings.OutputDir, fmt.Sprintf("sections_%s.json", corpus))
			}
			if err := ingest.SaveSections(sections, output); err != nil {
				return err
			}
			fmt.Printf("Saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("corpus", "", "corpus name under the data directory")
	cmd.Flags().String("output", "", "output path for sections JSON")
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract norms from sections with an LLM",
		Long: `Extract structured norms from ingested sections.

Example:
  lextime extract --sections sections.json --output norms.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionsPath, _ := cmd.Flags().GetString("sections")
			output, _ := cmd.Flags().GetString("output")
			if sectionsPath == "" {
				return fmt.Errorf("--sections flag is required")
			}

			settings, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			sections, err := ingest.LoadSections(sectionsPath)
			if err != nil {
				return err
			}

			provider, err := extract.NewProvider(extract.Config{
				Provider: settings.Provider,
				Model:    settings.Model,
				APIKey:   settings.APIKey(),
			})
			if err != nil {
				return err
			}

			extractor := extract.NewExtractorWithLimit(provider, rate.Limit(settings.RequestsPerSecond))
			norms, errs := extractor.ExtractBatch(context.Background(), sections)
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "warning: %v\n", e)
			}
			fmt.Printf("Extracted %d norms from %d sections (%d failed)\n",
				len(norms), len(sections), len(errs))

			if output == "" {
				output = filepath.Join(settings.OutputDir, "norms.json")
			}
			if err := extract.SaveNorms(norms, output); err != nil {
				return err
			}
			fmt.Printf("Saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("sections", "", "path to sections JSON")
	cmd.Flags().String("output", "", "output path for norms JSON")
	return cmd
}

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect conflicts between norms",
		Long: `Normalize temporal information and detect conflicts between norms from
different versions.

Example:
  lextime detect --norms norms.json --output conflicts.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			normsPath, _ := cmd.Flags().GetString("norms")
			output, _ := cmd.Flags().GetString("output")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if normsPath == "" {
				return fmt.Errorf("--norms flag is required")
			}

			settings, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = settings.SeverityThreshold
			}

			norms, err := extract.LoadNorms(normsPath)
			if err != nil {
				return err
			}

			fmt.Print("  1. Normalizing temporal information... ")
			temporal.NewNormalizer().NormalizeNorms(norms)
			fmt.Println("done")

			fmt.Print("  2. Detecting conflicts... ")
			conflicts := conflict.NewDetectorWithThreshold(threshold).Detect(norms)
			fmt.Printf("done (%d conflicts)\n", len(conflicts))

			summary := conflict.Summarize(conflicts)
			fmt.Printf("\nTotal: %d | Avg severity: %.2f | High severity: %d\n",
				summary.Total, summary.AvgSeverity, summary.HighSeverityCount)
			for ctype, count := range summary.ByType {
				fmt.Printf("  %s: %d\n", ctype, count)
			}

			if output == "" {
				output = filepath.Join(settings.OutputDir, "conflicts.json")
			}
			if err := saveConflicts(conflicts, output); err != nil {
				return err
			}
			fmt.Printf("Saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("norms", "", "path to norms JSON")
	cmd.Flags().String("output", "", "output path for conflicts JSON")
	cmd.Flags().Float64("threshold", 0.3, "minimum severity to report")
	return cmd
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve conflicts by legal canons",
		Long: `Apply lex superior, lex posterior, and lex specialis to every
unresolved conflict.

Example:
  lextime resolve --conflicts conflicts.json --explain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conflictsPath, _ := cmd.Flags().GetString("conflicts")
			output, _ := cmd.Flags().GetString("output")
			explain, _ := cmd.Flags().GetBool("explain")
			if conflictsPath == "" {
				return fmt.Errorf("--conflicts flag is required")
			}

			settings, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			conflicts, err := loadConflicts(conflictsPath)
			if err != nil {
				return err
			}

			canon.NewResolver().ResolveAll(conflicts)

			summary := canon.SummarizeResolutions(conflicts)
			fmt.Printf("Resolved %d/%d conflicts | Avg confidence: %.2f\n",
				summary.Resolved, summary.Total, summary.AvgConfidence)
			for c, count := range summary.ByCanon {
				fmt.Printf("  %s: %d\n", c, count)
			}

			if explain {
				for _, sc := range canon.RankResolutions(conflicts) {
					fmt.Println()
					fmt.Println(canon.Explain(sc.Conflict))
				}
			}

			if output == "" {
				output = filepath.Join(settings.OutputDir, "resolved.json")
			}
			if err := saveConflicts(conflicts, output); err != nil {
				return err
			}
			fmt.Printf("Saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("conflicts", "", "path to conflicts JSON")
	cmd.Flags().String("output", "", "output path for resolved conflicts JSON")
	cmd.Flags().Bool("explain", false, "print a ranked explanation per conflict")
	return cmd
}

func whatifCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatif",
		Short: "Answer point-in-time and window queries",
	}
	cmd.AddCommand(whatifApplicableCmd())
	cmd.AddCommand(whatifStatusCmd())
	cmd.AddCommand(whatifWindowCmd())
	return cmd
}

func whatifApplicableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "applicable",
		Short: "List norms applicable on a date",
		Long: `List the norms in force on a date, optionally filtered by action and
subject.

Example:
  lextime whatif applicable --norms norms.json --conflicts resolved.json --date 2024-06-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := loadAnalyzer(cmd)
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			action, _ := cmd.Flags().GetString("action")
			subject, _ := cmd.Flags().GetString("subject")

			return printResult(analyzer.ApplicableNorms(date, action, subject))
		},
	}
	addSnapshotFlags(cmd)
	cmd.Flags().String("date", "", "query date (YYYY-MM-DD)")
	cmd.Flags().String("action", "", "filter by action substring")
	cmd.Flags().String("subject", "", "filter by subject substring")
	return cmd
}

func whatifStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether an action is required, permitted, or prohibited",
		Long: `Report the deontic status of an action at the conduct date, warning
when the decision date sees a different set of norms.

Example:
  lextime whatif status --norms norms.json --conflicts resolved.json \
    --decision-date 2024-05-01 --conduct-date 2024-07-01 --action "report breaches"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := loadAnalyzer(cmd)
			if err != nil {
				return err
			}
			decision, err := flagDate(cmd, "decision-date")
			if err != nil {
				return err
			}
			conduct, err := flagDate(cmd, "conduct-date")
			if err != nil {
				return err
			}
			action, _ := cmd.Flags().GetString("action")
			subject, _ := cmd.Flags().GetString("subject")
			if action == "" {
				return fmt.Errorf("--action flag is required")
			}

			return printResult(analyzer.ActionStatus(decision, conduct, action, subject))
		},
	}
	addSnapshotFlags(cmd)
	cmd.Flags().String("decision-date", "", "date the decision is taken (YYYY-MM-DD)")
	cmd.Flags().String("conduct-date", "", "date the conduct occurs (YYYY-MM-DD)")
	cmd.Flags().String("action", "", "the action in question")
	cmd.Flags().String("subject", "", "filter by subject substring")
	return cmd
}

func whatifWindowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window",
		Short: "List conflicts inside a date window",
		Long: `List the conflicts whose overlap falls inside [start, end].

Example:
  lextime whatif window --norms norms.json --conflicts resolved.json \
    --start 2023-01-01 --end 2023-12-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := loadAnalyzer(cmd)
			if err != nil {
				return err
			}
			start, err := flagDate(cmd, "start")
			if err != nil {
				return err
			}
			end, err := flagDate(cmd, "end")
			if err != nil {
				return err
			}

			return printResult(analyzer.ConflictsInWindow(start, end))
		},
	}
	addSnapshotFlags(cmd)
	cmd.Flags().String("start", "", "window start (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "window end (YYYY-MM-DD)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a safety card for a section",
		Long: `Generate a safety card summarizing the norms, conflicts, timeline, and
residual risks of a section.

Example:
  lextime report --section eu_act_article_50 --corpus eu_ai_act \
    --norms norms.json --conflicts resolved.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionID, _ := cmd.Flags().GetString("section")
			corpus, _ := cmd.Flags().GetString("corpus")
			normsPath, _ := cmd.Flags().GetString("norms")
			conflictsPath, _ := cmd.Flags().GetString("conflicts")
			sectionsPath, _ := cmd.Flags().GetString("sections")
			if sectionID == "" || corpus == "" || normsPath == "" {
				return fmt.Errorf("--section, --corpus, and --norms flags are required")
			}

			settings, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			norms, err := extract.LoadNorms(normsPath)
			if err != nil {
				return err
			}

			var conflicts []*types.Conflict
			if conflictsPath != "" {
				conflicts, err = loadConflicts(conflictsPath)
				if err != nil {
					return err
				}
			}

			var sections []ingest.LegalSection
			if sectionsPath != "" {
				sections, err = ingest.LoadSections(sectionsPath)
				if err != nil {
					return err
				}
			}

			generator := report.NewGenerator(settings.OutputDir)
			card := generator.GenerateCard(sectionID, corpus, norms, conflicts, sections)
			path, err := generator.SaveCardJSON(card)
			if err != nil {
				return err
			}

			fmt.Print(report.Render(card))
			fmt.Printf("Saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("section", "", "section identifier for the card")
	cmd.Flags().String("corpus", "", "corpus name")
	cmd.Flags().String("norms", "", "path to norms JSON")
	cmd.Flags().String("conflicts", "", "path to conflicts JSON")
	cmd.Flags().String("sections", "", "path to sections JSON for a version diff")
	return cmd
}

func addSnapshotFlags(cmd *cobra.Command) {
	cmd.Flags().String("norms", "", "path to norms JSON")
	cmd.Flags().String("conflicts", "", "path to conflicts JSON")
}

// loadAnalyzer builds a what-if analyzer from the norms and (optional)
// conflicts files named on the command line.
func loadAnalyzer(cmd *cobra.Command) (*whatif.Analyzer, error) {
	normsPath, _ := cmd.Flags().GetString("norms")
	conflictsPath, _ := cmd.Flags().GetString("conflicts")
	if normsPath == "" {
		return nil, fmt.Errorf("--norms flag is required")
	}

	norms, err := extract.LoadNorms(normsPath)
	if err != nil {
		return nil, err
	}
	temporal.NewNormalizer().NormalizeNorms(norms)

	var conflicts []*types.Conflict
	if conflictsPath != "" {
		conflicts, err = loadConflicts(conflictsPath)
		if err != nil {
			return nil, err
		}
	}
	return whatif.NewAnalyzer(norms, conflicts), nil
}

func flagDate(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("--%s flag is required", name)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (want YYYY-MM-DD)", name, raw)
	}
	return t, nil
}

func printResult(result *whatif.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func saveConflicts(conflicts []*types.Conflict, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(conflicts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conflicts: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}

func loadConflicts(inputPath string) ([]*types.Conflict, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}
	var conflicts []*types.Conflict
	if err := json.Unmarshal(raw, &conflicts); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", inputPath, err)
	}
	return conflicts, nil
}
