package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

func rootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Breast tissue image classification client",
		Long: `metaselect sends tissue images to the Classification Service,
keeps the last analyses in a local history and exports text reports.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&o.serviceURL, "service-url", "", "Classification Service base URL (overrides config)")
	pf.StringVar(&o.historyDB, "history-db", "", "SQLite history file (overrides config)")
	pf.StringVar(&o.name, "name", os.Getenv("METASELECT_NAME"), "Analyst name used in reports")
	pf.StringVar(&o.email, "email", os.Getenv("METASELECT_EMAIL"), "Analyst email used in reports")
	pf.StringVar(&o.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.BoolVar(&o.jsonOut, "json", false, "Print JSON instead of text")

	cmd.AddCommand(
		analyzeCmd(&o),
		historyCmd(&o),
		statsCmd(&o),
		healthCmd(&o),
		modelInfoCmd(&o),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func analyzeCmd(o *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Classify an image and record it in the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), o, func(ctx context.Context, a *app) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if _, err := a.session.SelectFile(domain.Payload{
					FileName: filepath.Base(args[0]),
					Data:     data,
				}); err != nil {
					return err
				}
				if a.session.CheckServiceHealth(ctx) != domain.StatusConnected {
					return &domain.NotReadyError{Reason: "classification service is not connected"}
				}

				res, err := a.session.SubmitPending(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if o.jsonOut {
					err = printJSON(w, entryJSON(res.Entry))
				} else {
					printEntry(w, res.Entry)
				}
				if err != nil {
					return err
				}
				if res.Warning != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Warning)
				}

				if out == "" {
					return nil
				}
				name, body, err := a.session.ExportReport(ctx)
				if err != nil {
					return err
				}
				path := out
				if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
					path = filepath.Join(out, name)
				}
				if err := os.WriteFile(path, body, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write a text report to this file or directory (needs --name or --email)")
	return cmd
}

func historyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), o, func(ctx context.Context, a *app) error {
				entries := a.session.LoadHistory(ctx)
				w := cmd.OutOrStdout()
				if o.jsonOut {
					list := make([]map[string]any, 0, len(entries))
					for _, e := range entries {
						list = append(list, entryJSON(e))
					}
					return printJSON(w, list)
				}
				if len(entries) == 0 {
					fmt.Fprintln(w, "no analyses yet")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f%%\n",
						e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.FileName, e.Diagnosis, domain.Percent(e.Confidence))
				}
				return nil
			})
		},
	}
}

func statsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), o, func(ctx context.Context, a *app) error {
				s := a.session.Stats(ctx)
				w := cmd.OutOrStdout()
				if o.jsonOut {
					return printJSON(w, s)
				}
				fmt.Fprintf(w, "Total analyses: %d\nMalignant: %d\nBenign: %d\nMean confidence: %.1f%%\n",
					s.Total, s.Malignant, s.Benign, domain.Percent(s.MeanConfidence))
				return nil
			})
		},
	}
}

func healthCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the Classification Service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), o, func(ctx context.Context, a *app) error {
				status := a.session.CheckServiceHealth(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), status)
				if status != domain.StatusConnected {
					return fmt.Errorf("classification service is %s", status)
				}
				return nil
			})
		},
	}
}

func modelInfoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "model-info",
		Short: "Print the model description reported by the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), o, func(ctx context.Context, a *app) error {
				info, err := a.svc.ModelInfo(ctx)
				if err != nil {
					return err
				}
				var v any
				if err := json.Unmarshal(info, &v); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func withApp(ctx context.Context, o *options, fn func(context.Context, *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printEntry(w io.Writer, e domain.HistoryEntry) {
	fmt.Fprintf(w, "File: %s\nPrediction: %s\nConfidence: %.1f%%\n", e.FileName, e.Diagnosis, domain.Percent(e.Confidence))
	if e.Result == nil {
		return
	}
	if lvl := e.Result.Level(); lvl != "" {
		fmt.Fprintf(w, "Confidence level: %s\n", lvl)
	}
	if ex := e.Result.Explanations(); len(ex) > 0 {
		fmt.Fprintln(w, "\nAI Explanations:")
		for _, x := range ex {
			fmt.Fprintf(w, "- %s: %s\n", x.Title, x.Description)
		}
	}
}

func entryJSON(e domain.HistoryEntry) map[string]any {
	m := map[string]any{
		"id":         e.ID,
		"file_name":  e.FileName,
		"timestamp":  e.CreatedAt.UTC(),
		"prediction": e.Diagnosis,
		"confidence": e.Confidence,
	}
	if e.Result != nil {
		m["level"] = e.Result.Level()
		m["explanations"] = e.Result.Explanations()
	}
	return m
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
