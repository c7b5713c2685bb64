package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resume-roaster/internal/analyses"
	"resume-roaster/internal/bootstrap"
	"resume-roaster/internal/extract"
	"resume-roaster/internal/settings"
	"resume-roaster/internal/shared/config"
	"resume-roaster/internal/shared/storage/db"
	"resume-roaster/internal/shared/telemetry"
)

var (
	analyzeRaw     settings.Raw
	analyzeJSON    bool
	analyzePersist bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a PDF, DOCX, HTML or text résumé",
	Long: `Extracts the text of a résumé file and runs a full analysis.

Examples:
  # Brutal roast in French
  roast analyze cv.pdf --tone brutal --language fr

  # Machine readable output, stored in DATABASE_URL
  roast analyze cv.docx --json --persist`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeRaw.Tone, "tone", "", "mild, balanced or brutal")
	analyzeCmd.Flags().StringVar(&analyzeRaw.Language, "language", "", "en, es or fr")
	analyzeCmd.Flags().StringVar(&analyzeRaw.Style, "style", "", "funny, serious, sarcastic or motivational")
	analyzeCmd.Flags().StringVar(&analyzeRaw.Audience, "audience", "", "male, female or other")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full record as JSON")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "Store the record in DATABASE_URL")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	level := "error"
	if verbose {
		level = "info"
	}
	telemetry.Init(telemetry.Config{Level: level, Format: "pretty", Output: cmd.ErrOrStderr()})

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	text, err := extract.Text(ctx, data, "", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !analyzePersist {
		cfg.Database.URL = ""
	}
	cfg.Env = "local"
	cliOpts := db.DefaultCLIOptions()
	app, err := bootstrap.Build(ctx, *cfg, bootstrap.Options{SkipRouter: true, DBOptions: &cliOpts})
	if err != nil {
		return err
	}
	defer app.Close()

	res := app.AnalysesService.Analyze(ctx, analyses.Request{
		Text:   text,
		Config: analyzeRaw,
		File:   analyses.FileMeta{Name: filepath.Base(path), Size: int64(len(data))},
	})
	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(out, res)
	}
	if !res.Success {
		return fmt.Errorf("analysis failed: %s", res.ErrorCode)
	}
	return nil
}

func printResult(w io.Writer, res analyses.Result) {
	if !res.Success {
		fmt.Fprintf(w, "%s: %s\n", res.ErrorCode, res.UserMessage)
		return
	}
	rec := res.Record
	fmt.Fprintf(w, "Score: %d/100\n\n%s\n", rec.Score, rec.Feedback)
	printList(w, "Strengths", rec.Strengths)
	printList(w, "Weaknesses", rec.Weaknesses)

	fmt.Fprintln(w, "\nImprovements")
	for _, imp := range rec.Improvements {
		fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(imp.Priority), imp.Title, imp.Description)
	}
	if len(rec.Coercions) > 0 {
		fmt.Fprintln(w)
		for _, c := range rec.Coercions {
			fmt.Fprintf(w, "note: %s %q is not supported, used %q\n", c.Field, c.Given, c.Used)
		}
	}
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "\n%s\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}
