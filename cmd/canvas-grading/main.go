package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kevinhitt/canvas-grading/internal/bank"
	"github.com/kevinhitt/canvas-grading/internal/gradebook"
	appI18n "github.com/kevinhitt/canvas-grading/internal/i18n"
	"github.com/kevinhitt/canvas-grading/internal/match"
	"github.com/kevinhitt/canvas-grading/internal/model"
	"github.com/kevinhitt/canvas-grading/internal/qti"
	"github.com/kevinhitt/canvas-grading/internal/render"
	"github.com/kevinhitt/canvas-grading/internal/report"
	"github.com/kevinhitt/canvas-grading/internal/resolve"
	"github.com/kevinhitt/canvas-grading/internal/store"
	"github.com/kevinhitt/canvas-grading/internal/webview"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "canvas-grading",
		Short: "Convert Canvas quiz and gradebook exports into per-student miss reports",
	}

	run := runCmd()
	root.AddCommand(
		parseCmd(), mapCmd(), bankCmd(), gradeCmd(),
		reportCmd(), htmlizeCmd(), run, serveCmd(),
	)

	// Make "run" the default when no subcommand is given.
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addSchemaFlags(f *pflag.FlagSet) {
	def := model.DefaultConfig()
	f.StringSlice("front-cols", def.FrontColumns, "Leading identity columns of the gradebook")
	f.StringSlice("summary-cols", def.SummaryColumns, "Trailing summary columns of the gradebook")
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract questions and responses from an assessment XML",
		RunE:  runParse,
	}
	f := cmd.Flags()
	f.StringP("exam", "e", "", "Path to the assessment XML (required)")
	f.StringP("output", "o", "question_bank.csv", "Output question bank CSV")
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Match extracted questions to gradebook column headers",
		RunE:  runMap,
	}
	f := cmd.Flags()
	f.StringP("bank", "b", "question_bank.csv", "Question bank CSV")
	f.StringP("gradebook", "g", "", "Gradebook CSV (required)")
	f.StringP("output", "o", "question_mapping.csv", "Output mapping CSV")
	f.Float64("threshold", model.DefaultConfig().Threshold, "Minimum similarity ratio to accept a match")
	addSchemaFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("gradebook")
	return cmd
}

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Pivot the question bank into one wide row per question",
		RunE:  runBank,
	}
	f := cmd.Flags()
	f.StringP("bank", "b", "question_bank.csv", "Question bank CSV")
	f.StringP("output", "o", "questions_wide.csv", "Output wide questions CSV")
	addLogFlags(f)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Replace gradebook flags with resolved answer letters",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("gradebook", "g", "", "Gradebook CSV (required)")
	f.StringP("wide", "w", "questions_wide.csv", "Wide questions CSV")
	f.StringP("output", "o", "grade_with_answers.csv", "Output letter-coded gradebook CSV")
	f.Float64("fuzzy-threshold", model.DefaultConfig().FuzzyThreshold, "Minimum similarity ratio for the fuzzy answer pass")
	addSchemaFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("gradebook")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate per-student Markdown reports of missed questions",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringP("gradebook", "g", "", "Gradebook CSV (required)")
	f.StringP("bank", "b", "question_bank.csv", "Question bank CSV")
	f.StringP("mapping", "m", "question_mapping.csv", "Question mapping CSV")
	f.StringP("output", "o", "student_reports", "Output directory for Markdown reports")
	f.StringP("lang", "l", "en", "Report language (en, es)")
	f.Bool("strict", true, "Require an id: prefix on every question header")
	addSchemaFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("gradebook")
	return cmd
}

func htmlizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "htmlize",
		Short: "Render Markdown reports as styled HTML pages",
		RunE:  runHtmlize,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "student_reports", "Directory of Markdown reports")
	f.StringP("output", "o", "", "Output directory (default: same as input)")
	addLogFlags(f)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline: parse, map, bank, grade, report, htmlize",
		RunE:  runPipeline,
	}
	f := cmd.Flags()
	def := model.DefaultConfig()
	f.StringP("exam", "e", "", "Path to the assessment XML (required)")
	f.StringP("gradebook", "g", "", "Gradebook CSV (required)")
	f.StringP("output", "o", ".", "Directory for generated artifacts")
	f.String("reports-dir", "student_reports", "Markdown reports directory name under output")
	f.String("html-dir", "html_reports", "HTML reports directory name under output")
	f.String("db", "", "Optional SQLite path to record the run for inspection")
	f.Float64("threshold", def.Threshold, "Minimum similarity ratio to accept a question match")
	f.Float64("fuzzy-threshold", def.FuzzyThreshold, "Minimum similarity ratio for the fuzzy answer pass")
	f.StringP("lang", "l", "en", "Report language (en, es)")
	f.Bool("strict", true, "Require an id: prefix on every question header")
	addSchemaFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("gradebook")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a recorded run for inspection",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "canvas-grading.db", "SQLite database recorded by run --db")
	f.String("reports", "html_reports", "Directory of rendered HTML reports")
	addLogFlags(f)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CANVAS_GRADING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("canvas-grading")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/canvas-grading")
	v.AddConfigPath("/etc/canvas-grading")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func configFromViper(v *viper.Viper) model.Config {
	cfg := model.DefaultConfig()
	if v.IsSet("threshold") {
		cfg.Threshold = v.GetFloat64("threshold")
	}
	if v.IsSet("fuzzy-threshold") {
		cfg.FuzzyThreshold = v.GetFloat64("fuzzy-threshold")
	}
	if cols := v.GetStringSlice("front-cols"); len(cols) > 0 {
		cfg.FrontColumns = cols
	}
	if cols := v.GetStringSlice("summary-cols"); len(cols) > 0 {
		cfg.SummaryColumns = cols
	}
	cfg.Strict = v.GetBool("strict")
	return cfg
}

// writeFile creates path and hands the open file to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func runParse(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	items, err := qti.ParseFile(v.GetString("exam"))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		slog.Warn("no questions extracted, check the XML structure", "path", v.GetString("exam"))
	}

	out := v.GetString("output")
	if err := writeFile(out, func(w io.Writer) error {
		return bank.WriteFlat(w, items)
	}); err != nil {
		return err
	}
	slog.Info("wrote question bank", "path", out, "questions", len(items))
	return nil
}

func runMap(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := configFromViper(v)

	items, err := bank.ReadFlatFile(v.GetString("bank"))
	if err != nil {
		return err
	}
	t, err := gradebook.LoadFile(v.GetString("gradebook"), cfg)
	if err != nil {
		return err
	}

	cands := make([]match.Candidate, 0, len(t.Pairs))
	for _, p := range t.Pairs {
		cands = append(cands, match.NewCandidate(p.Header))
	}
	mappings := match.Map(items, cands, cfg.Threshold)

	matched := 0
	for _, m := range mappings {
		if m.Matched() {
			matched++
		} else {
			slog.Warn("no header matched above threshold",
				"group", m.Group, "score", m.Score, "snippet", m.Snippet)
		}
	}

	out := v.GetString("output")
	if err := writeFile(out, func(w io.Writer) error {
		return match.WriteCSV(w, mappings)
	}); err != nil {
		return err
	}
	slog.Info("wrote question mapping", "path", out,
		"matched", matched, "unmatched", len(mappings)-matched)
	return nil
}

func runBank(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	items, err := bank.ReadFlatFile(v.GetString("bank"))
	if err != nil {
		return err
	}
	rows := bank.BuildWide(items)

	out := v.GetString("output")
	if err := writeFile(out, func(w io.Writer) error {
		return bank.WriteWide(w, rows)
	}); err != nil {
		return err
	}
	slog.Info("wrote wide questions", "path", out, "questions", len(rows))
	return nil
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := configFromViper(v)

	t, err := gradebook.LoadFile(v.GetString("gradebook"), cfg)
	if err != nil {
		return err
	}
	wide, err := bank.ReadWideFile(v.GetString("wide"))
	if err != nil {
		return err
	}
	resolve.Rewrite(t, wide, cfg.FuzzyThreshold)

	out := v.GetString("output")
	if err := writeFile(out, t.Write); err != nil {
		return err
	}
	slog.Info("wrote letter-coded gradebook", "path", out, "students", len(t.Rows))
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := configFromViper(v)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	t, err := gradebook.LoadFile(v.GetString("gradebook"), cfg)
	if err != nil {
		return err
	}
	items, err := bank.ReadFlatFile(v.GetString("bank"))
	if err != nil {
		return err
	}
	mappings, err := match.ReadFile(v.GetString("mapping"))
	if err != nil {
		return err
	}

	responses := report.ResponseMap(items, mappings)
	return report.Write(ctx, t, responses, v.GetString("output"))
}

func runHtmlize(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	in := v.GetString("input")
	out := v.GetString("output")
	if out == "" {
		out = in
	}
	_, err := render.Dir(in, out)
	return err
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := configFromViper(v)

	outDir := v.GetString("output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Extract.
	items, err := qti.ParseFile(v.GetString("exam"))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		slog.Warn("no questions extracted, check the XML structure", "path", v.GetString("exam"))
	}
	if err := writeFile(filepath.Join(outDir, "question_bank.csv"), func(w io.Writer) error {
		return bank.WriteFlat(w, items)
	}); err != nil {
		return err
	}

	// Match questions to gradebook headers.
	t, err := gradebook.LoadFile(v.GetString("gradebook"), cfg)
	if err != nil {
		return err
	}
	cands := make([]match.Candidate, 0, len(t.Pairs))
	for _, p := range t.Pairs {
		cands = append(cands, match.NewCandidate(p.Header))
	}
	mappings := match.Map(items, cands, cfg.Threshold)
	for _, m := range mappings {
		if !m.Matched() {
			slog.Warn("no header matched above threshold",
				"group", m.Group, "score", m.Score, "snippet", m.Snippet)
		}
	}
	if err := writeFile(filepath.Join(outDir, "question_mapping.csv"), func(w io.Writer) error {
		return match.WriteCSV(w, mappings)
	}); err != nil {
		return err
	}

	// Pivot into the wide table.
	wide := bank.BuildWide(items)
	if err := writeFile(filepath.Join(outDir, "questions_wide.csv"), func(w io.Writer) error {
		return bank.WriteWide(w, wide)
	}); err != nil {
		return err
	}

	// Reports come first: they need the original 0/1 flags that grading
	// overwrites below.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))
	reportsDir := filepath.Join(outDir, v.GetString("reports-dir"))
	responses := report.ResponseMap(items, mappings)
	if err := report.Write(ctx, t, responses, reportsDir); err != nil {
		return err
	}

	htmlDir := filepath.Join(outDir, v.GetString("html-dir"))
	if _, err := render.Dir(reportsDir, htmlDir); err != nil {
		return err
	}

	// Resolve answer letters into the flag columns.
	resolve.Rewrite(t, wide, cfg.FuzzyThreshold)
	if err := writeFile(filepath.Join(outDir, "grade_with_answers.csv"), t.Write); err != nil {
		return err
	}

	if dbPath := v.GetString("db"); dbPath != "" {
		if err := recordRun(dbPath, v, cfg, items, mappings, t); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	slog.Info("pipeline complete",
		"questions", len(items),
		"students", len(t.Rows),
		"output", outDir,
	)
	return nil
}

// recordRun persists the run's artifacts for later inspection via serve.
func recordRun(dbPath string, v *viper.Viper, cfg model.Config, items []model.Item, mappings []model.Mapping, t *gradebook.Table) error {
	db, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ReplaceItems(items); err != nil {
		return err
	}
	if err := db.ReplaceMappings(mappings); err != nil {
		return err
	}

	idCol, err := t.Column("id")
	if err != nil {
		return err
	}
	var resolutions []model.Resolution
	for _, row := range t.Rows {
		for _, p := range t.Pairs {
			resolutions = append(resolutions, model.Resolution{
				Student: row[idCol],
				Header:  p.Header,
				Letter:  row[p.Flag],
			})
		}
	}
	if err := db.ReplaceResolutions(resolutions); err != nil {
		return err
	}

	return db.SetRunInfo(model.RunInfo{
		SourceXML:      v.GetString("exam"),
		Gradebook:      v.GetString("gradebook"),
		Threshold:      cfg.Threshold,
		FuzzyThreshold: cfg.FuzzyThreshold,
		CompletedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	h := webview.New(db, v.GetString("reports"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting inspection server", "addr", addr, "db", v.GetString("db"))
	return http.ListenAndServe(addr, r)
}
