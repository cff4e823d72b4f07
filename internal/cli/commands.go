package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/xab-mack/anchorscan/internal/config"
	"github.com/xab-mack/anchorscan/internal/engine"
	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/report"
	"github.com/xab-mack/anchorscan/internal/rules"
	"github.com/xab-mack/anchorscan/internal/rust"
	"github.com/xab-mack/anchorscan/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newScanCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
}

func newLogger(verbose bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{
		Name:   "anchorscan",
		Output: os.Stderr,
		Level:  level,
	})
	query.SetLogger(log.Named("query"))
	rules.SetLogger(log.Named("rules"))
	return log
}

func newScanCmd() *cobra.Command {
	var (
		format        string
		outputFile    string
		sarifOut      string
		ignoreSevs    []string
		ignoreRules   []string
		includeTypes  []string
		templates     string
		baseline      string
		writeBaseline string
		failOn        string
		useTUI        bool
		verbose       bool
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Analyze a Solana/Anchor source tree for vulnerabilities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			log := newLogger(verbose)

			cfg, cfgPath, err := config.Load(path)
			if err != nil {
				log.Warn("could not load config", "path", cfgPath, "error", err)
			} else if cfgPath != "" {
				log.Debug("loaded config", "path", cfgPath)
			}
			// flags win over config file values
			if len(ignoreSevs) == 0 {
				ignoreSevs = cfg.IgnoreSeverities
			}
			if len(ignoreRules) == 0 {
				ignoreRules = cfg.IgnoreRules
			}
			if len(includeTypes) == 0 {
				includeTypes = cfg.IncludeRuleTypes
			}
			if templates == "" {
				templates = cfg.TemplatesPath
			}
			if baseline == "" {
				baseline = cfg.Baseline
			}
			if failOn == "" {
				failOn = cfg.FailOn
			}

			engCfg, err := buildEngineConfig(ignoreSevs, ignoreRules, includeTypes, templates)
			if err != nil {
				return err
			}

			eng := engine.New(engCfg, log.Named("engine"))
			eng.LoadBuiltinRules()
			if engCfg.CustomTemplatesPath != "" {
				if err := eng.LoadYAMLRules(engCfg.CustomTemplatesPath); err != nil {
					return err
				}
			}

			files, err := rust.Walk(path, log.Named("parser"))
			if err != nil {
				return err
			}

			analyzer := engine.NewAnalyzer(eng, engine.Options{
				BaselinePath:      baseline,
				WriteBaselinePath: writeBaseline,
			}, log.Named("analyzer"))
			result, err := analyzer.AnalyzeFiles(files)
			if err != nil {
				return err
			}

			if useTUI {
				if err := tui.Run(result.Findings); err != nil {
					return err
				}
				return checkFailOn(result, failOn)
			}

			gen := report.NewGenerator(log.Named("report"))
			switch format {
			case "json":
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				if outputFile != "" {
					if err := os.WriteFile(outputFile, data, 0o644); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
				}
			case "markdown":
				if outputFile != "" {
					if err := gen.SaveMarkdown(outputFile, result); err != nil {
						return err
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), gen.Markdown(result))
				}
			default:
				gen.Console(cmd.OutOrStdout(), result)
			}
			if sarifOut != "" {
				if err := gen.SaveSARIF(sarifOut, result); err != nil {
					return err
				}
			}

			return checkFailOn(result, failOn)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "console", "Output format: console|json|markdown")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&sarifOut, "sarif-out", "", "Additionally write a SARIF report to this file")
	cmd.Flags().StringSliceVar(&ignoreSevs, "ignore", nil, "Severities to ignore (high|medium|low|informational)")
	cmd.Flags().StringSliceVar(&ignoreRules, "ignore-rules", nil, "Rule IDs to ignore")
	cmd.Flags().StringSliceVar(&includeTypes, "include-types", nil, "Rule types to include (solana|anchor|general)")
	cmd.Flags().StringVar(&templates, "templates", "", "Path to custom YAML rule templates")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Baseline file of fingerprints to suppress")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero if a finding at this severity or higher remains")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Browse findings interactively")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func buildEngineConfig(ignoreSevs, ignoreRules, includeTypes []string, templates string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.IgnoreRules = ignoreRules
	cfg.CustomTemplatesPath = templates
	for _, s := range ignoreSevs {
		sev, ok := model.ParseSeverity(s)
		if !ok {
			return cfg, fmt.Errorf("unknown severity %q", s)
		}
		cfg.IgnoreSeverities = append(cfg.IgnoreSeverities, sev)
	}
	if len(includeTypes) > 0 {
		cfg.IncludeRuleTypes = nil
		for _, t := range includeTypes {
			rt, ok := model.ParseRuleType(t)
			if !ok {
				return cfg, fmt.Errorf("unknown rule type %q", t)
			}
			cfg.IncludeRuleTypes = append(cfg.IncludeRuleTypes, rt)
		}
	}
	return cfg, nil
}

func checkFailOn(result *model.AnalysisResult, failOn string) error {
	if failOn == "" {
		return nil
	}
	threshold, ok := model.ParseSeverity(failOn)
	if !ok {
		return fmt.Errorf("unknown severity %q", failOn)
	}
	for _, f := range result.Findings {
		if f.Severity.GTE(threshold) {
			return fmt.Errorf("fail-on threshold met: %s finding from %s", f.Severity, f.RuleID)
		}
	}
	return nil
}
