package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/match"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/web"
)

// withApp loads configuration, builds the engine and runs fn against it
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func createTranslateCmd() *cobra.Command {
	var minConfidence float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Resolve one lab test name",
		Long:  `Resolve a lab test name or abbreviation to a LOINC code. Arguments are joined with spaces.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMinConfidence(minConfidence); err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				result := a.engine.Translate(strings.Join(args, " "), minConfidence)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop candidates below this confidence")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func createSearchCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Browse LOINC concepts by name",
		Long:  `List concepts whose official name or synonym contains the query, names starting with it first.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			return withApp(cmd, func(a *app) error {
				hits := a.engine.Search(strings.Join(args, " "), limit)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), hits)
				}
				printSearchHits(cmd.OutOrStdout(), hits)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", index.DefaultSearchLimit, "maximum number of concepts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the hits as JSON")
	return cmd
}

func createBatchCmd() *cobra.Command {
	var minConfidence float64
	var output string

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Resolve a file of lab test names",
		Long: `Resolve one lab test name per line (blank lines are skipped) and write CSV
with columns input, identifier, name, confidence, provenance. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMinConfidence(minConfidence); err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			texts, err := readLines(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			return withApp(cmd, func(a *app) error {
				results := a.engine.BatchTranslate(texts, minConfidence)
				if err := writeResultsCSV(out, results); err != nil {
					return err
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Translated %d names (%d resolved) to %s\n",
						len(results), countResolved(results), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop candidates below this confidence")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write CSV to this file instead of stdout")
	return cmd
}

func createConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm [text] [identifier]",
		Short: "Record a confirmed mapping",
		Long:  `Record that a lab test name resolves to a LOINC code. Later translations of the same name return it first.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				entry, err := a.engine.Confirm(cmd.Context(), args[0], model.Identifier(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %q -> %s (used %d times)\n",
					entry.Normalized, entry.Identifier, entry.UsageCount)
				return nil
			})
		},
	}
}

func createStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reference data counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				s := a.engine.Stats()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Concepts:          %d\n", s.Concepts)
				fmt.Fprintf(out, "Curated mappings:  %d\n", s.CuratedMappings)
				fmt.Fprintf(out, "Learned mappings:  %d\n", s.LearnedMappings)
				fmt.Fprintf(out, "Synonyms:          %d\n", s.Synonyms)
				fmt.Fprintf(out, "Abbreviations:     %d\n", s.Abbreviations)
				return nil
			})
		},
	}
}

func createServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				webConfig := web.DefaultConfig()
				webConfig.Host = a.cfg.WebHost
				webConfig.Port = a.cfg.WebPort
				if cmd.Flags().Changed("host") {
					webConfig.Host = host
				}
				if cmd.Flags().Changed("port") {
					webConfig.Port = port
				}

				server := web.NewServer(webConfig, a.engine, a.registry, a.logger)
				return server.Start(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides ROSETTA_WEB_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides ROSETTA_WEB_PORT)")
	return cmd
}

func validateMinConfidence(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("--min-confidence must be between 0 and 1, got %g", v)
	}
	return nil
}

func printResult(w io.Writer, r match.Result) {
	if !r.Resolved() {
		fmt.Fprintf(w, "%q: unresolved (%s)\n", r.SourceText, r.Reason)
		return
	}

	flag := ""
	if r.Ambiguous {
		flag = " [ambiguous]"
	}
	fmt.Fprintf(w, "%q -> %s %s\n", r.SourceText, r.Identifier, r.Name)
	fmt.Fprintf(w, "  confidence %.3f via %s%s\n", r.Confidence, r.Provenance, flag)
	for _, c := range r.RunnerUps() {
		fmt.Fprintf(w, "  also %s %.3f (%s) %s\n", c.Identifier, c.Confidence, c.Provenance, c.Name)
	}
}

func printSearchHits(w io.Writer, hits []index.SearchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching concepts")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%-10s %s\n", h.Identifier, h.Name)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
