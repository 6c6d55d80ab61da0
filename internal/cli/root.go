package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-redactor/internal/config"
	"github.com/nerdneilsfield/go-redactor/internal/logger"
	"github.com/nerdneilsfield/go-redactor/internal/names"
	"github.com/nerdneilsfield/go-redactor/internal/redactor"
)

var (
	cfgFile      string
	nameList     string
	placeholder  string
	preserveCase bool
	noVariations bool
	firstPage    int
	lastPage     int
	zipName      string
	initials     string
	renameAll    bool
	outputDir    string
	detectNames  bool
	listTerms    bool
	saveConfig   bool
	debugMode    bool
	verboseMode  bool
)

// NewRootCommand creates the root command.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "redactor [flags] file...",
		Short: "redactor removes personal names from office documents",
		Long: `redactor removes personal names from DOCX, PPTX, and PDF files.

Each name is expanded into common variations (honorifics, initials,
last name alone) and every whole-word, case-insensitive occurrence is
replaced with a placeholder. PDF matches are physically removed from
the text layer and covered with a black box. ZIP archives are
processed member by member.

Supported inputs: .docx, .pptx, .pdf, .zip`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if listTerms || saveConfig {
				return nil
			}
			if len(args) < 1 {
				return fmt.Errorf("requires at least 1 file argument")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			log := logger.NewLoggerWithVerbose(debugMode, verboseMode)
			defer func() {
				_ = log.Sync()
			}()

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				log.Error("failed to load configuration", zap.Error(err))
				os.Exit(1)
			}
			applyFlags(cmd, cfg)
			if err := config.Validate(cfg); err != nil {
				log.Error("invalid configuration", zap.Error(err))
				os.Exit(1)
			}
			if saveConfig {
				if err := config.SaveConfig(cfg, ""); err != nil {
					log.Error("failed to save configuration", zap.Error(err))
					os.Exit(1)
				}
				pterm.Success.Println("configuration saved to ~/.redactor.yaml")
				if len(args) == 0 {
					return
				}
			}

			if len(cfg.Names) == 0 && !cfg.Detector.Enabled {
				log.Error("no names given; use --names or a config file")
				os.Exit(1)
			}

			var opts []redactor.Option
			if cfg.Detector.Enabled {
				opts = append(opts, redactor.WithCandidateSupplier(
					names.NewOpenAIDetector(cfg.Detector.APIKey, cfg.Detector.Model, log)))
			}
			orch := redactor.New(cfg, log, opts...)

			if listTerms {
				printTerms(orch.Terms())
				return
			}

			results := make([]redactor.Result, 0, len(args))
			for _, path := range args {
				results = append(results, processFile(cmd, orch, log, path))
			}
			printSummary(results)

			for _, res := range results {
				if res.Err != nil {
					os.Exit(1)
				}
			}
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.redactor.yaml)")
	rootCmd.Flags().StringVarP(&nameList, "names", "n", "", "comma-separated names to redact")
	rootCmd.Flags().StringVarP(&placeholder, "placeholder", "p", "", "replacement text for DOCX/PPTX (default \"[REDACTED]\")")
	rootCmd.Flags().BoolVar(&preserveCase, "preserve-case", false, "adapt placeholder casing to the matched text")
	rootCmd.Flags().BoolVar(&noVariations, "no-variations", false, "match the given names literally, without generated variations")
	rootCmd.Flags().IntVar(&firstPage, "first-page", 0, "first PDF page / PPTX slide to scan (1-based)")
	rootCmd.Flags().IntVar(&lastPage, "last-page", 0, "last PDF page / PPTX slide to scan (1-based)")
	rootCmd.Flags().StringVar(&zipName, "zip-name", "", "base name for ZIP output (default redacted_<input>)")
	rootCmd.Flags().StringVar(&initials, "initials", "", "initials for renamed ZIP members")
	rootCmd.Flags().BoolVar(&renameAll, "rename-members", false, "rename ZIP members even without --initials")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default alongside the input)")
	rootCmd.Flags().BoolVar(&detectNames, "detect", false, "detect additional candidate names in PDFs via the configured LLM")
	rootCmd.Flags().BoolVar(&listTerms, "list-terms", false, "print the expanded term set and exit")
	rootCmd.Flags().BoolVar(&saveConfig, "save-config", false, "persist the effective settings to ~/.redactor.yaml")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&verboseMode, "verbose", "v", false, "enable verbose logging")

	return rootCmd
}

// applyFlags overlays explicitly set command-line flags onto the
// loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if nameList != "" {
		cfg.Names = append(cfg.Names, names.ParseNames(nameList)...)
	}
	if placeholder != "" {
		cfg.Placeholder = placeholder
	}
	if cmd.Flags().Changed("preserve-case") {
		cfg.PreserveCase = preserveCase
	}
	if noVariations {
		cfg.GenerateVariations = false
	}
	if cmd.Flags().Changed("first-page") {
		cfg.PageRange.First = firstPage
	}
	if cmd.Flags().Changed("last-page") {
		cfg.PageRange.Last = lastPage
	}
	if zipName != "" {
		cfg.Zip.OutputBase = zipName
	}
	if initials != "" {
		cfg.Zip.Initials = strings.ToUpper(strings.TrimSpace(initials))
	}
	if renameAll {
		cfg.Zip.RenameMembers = true
	}
	if detectNames {
		cfg.Detector.Enabled = true
		if cfg.Detector.APIKey == "" {
			cfg.Detector.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func processFile(cmd *cobra.Command, orch *redactor.Orchestrator, log *zap.Logger, path string) redactor.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		pterm.Error.Printfln("%s: %v", path, err)
		return redactor.Result{InputName: filepath.Base(path), Err: err}
	}

	res := orch.Process(cmd.Context(), filepath.Base(path), data)
	switch {
	case res.Err != nil:
		pterm.Error.Printfln("%s: %v", path, res.Err)
		return res
	case res.Skipped:
		pterm.Warning.Printfln("%s: unsupported file type, skipped", path)
		return res
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	outPath := filepath.Join(dir, res.DisplayName)
	if err := os.WriteFile(outPath, res.Output, 0o644); err != nil {
		log.Error("failed to write output", zap.String("path", outPath), zap.Error(err))
		res.Err = err
		return res
	}

	if res.Modified {
		pterm.Success.Printfln("%s: %d redaction(s) -> %s", path, res.Redactions, outPath)
	} else {
		pterm.Info.Printfln("%s: no matches, original written to %s", path, outPath)
	}
	return res
}

func printTerms(terms []string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Term"})
	for i, term := range terms {
		t.AppendRow(table.Row{i + 1, term})
	}
	t.Render()
}

func printSummary(results []redactor.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"File", "Output", "Redactions", "Status"})
	for _, res := range results {
		status := "ok"
		switch {
		case res.Err != nil:
			status = "error"
		case res.Skipped:
			status = "skipped"
		case !res.Modified:
			status = "no matches"
		}
		t.AppendRow(table.Row{res.InputName, res.DisplayName, res.Redactions, status})
	}
	t.Render()
}
