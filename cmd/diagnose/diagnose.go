package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"feedhub/internal/config"
	"feedhub/internal/domain/entity"
	"feedhub/internal/handler/http/respond"
	"feedhub/internal/infra/atom"
	"feedhub/internal/infra/httpclient"
	"feedhub/internal/infra/source"
	"feedhub/internal/observability/logging"
	"feedhub/internal/session"
	"feedhub/internal/usecase/pipeline"

	"github.com/spf13/cobra"
)

// Diagnostic is the outcome of one pipeline run.
type Diagnostic struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Status      string   `json:"status"` // "ok" or the failure kind
	Entries     int      `json:"entries"`
	LatestEntry string   `json:"latest_entry,omitempty"`
	AuthCalls   int      `json:"auth_calls"`
	FetchCalls  int      `json:"fetch_calls"`
	States      []string `json:"states"`
	DurationMS  int64    `json:"duration_ms"`
	Error       string   `json:"error,omitempty"`
	DumpPath    string   `json:"dump_path,omitempty"`
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	timeout, err := time.ParseDuration(rootFlags.timeout)
	if err != nil {
		return fmt.Errorf("invalid --timeout: %w", err)
	}
	sources, err := config.LoadSources(rootFlags.sourcesFile)
	if err != nil {
		return err
	}
	sources, err = selectSources(sources, args)
	if err != nil {
		return err
	}

	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(logger)
	httpCfg, warnings := httpclient.LoadConfigFromEnv()
	for _, w := range warnings {
		logger.Warn("http client configuration", slog.String("warning", w))
	}
	factory := source.NewFactory(httpCfg, source.WithFactoryLogger(logger))

	pl := pipeline.New(session.NewMemoryStore(), pipeline.WithRunTimeout(timeout), pipeline.WithLogger(logger))
	diags := diagnose(cmd.Context(), pl, factory, sources, rootFlags.dumpDir)

	out := cmd.OutOrStdout()
	if rootFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(diags)
	}
	printReport(out, diags)
	return nil
}

// selectSources keeps the sources named in args, in the order given.
// No args keeps every source.
func selectSources(all []config.Source, names []string) ([]config.Source, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]config.Source, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]config.Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// diagnose runs the sources one after another so the report reads in order
// and no upstream sees concurrent logins from one run.
func diagnose(ctx context.Context, pl *pipeline.Pipeline, factory *source.Factory, sources []config.Source, dumpDir string) []Diagnostic {
	if ctx == nil {
		ctx = context.Background()
	}
	diags := make([]Diagnostic, 0, len(sources))
	for _, src := range sources {
		d := Diagnostic{Name: src.Name, Kind: src.Kind}

		adapter, err := factory.Build(src)
		if err != nil {
			d.Status = "config_error"
			d.Error = respond.SanitizeError(err)
			diags = append(diags, d)
			continue
		}

		feed, stats, err := pl.RunWithStats(ctx, adapter)
		d.AuthCalls = stats.AuthCalls
		d.FetchCalls = stats.FetchCalls
		d.DurationMS = stats.Duration.Milliseconds()
		for _, s := range stats.States {
			d.States = append(d.States, s.String())
		}
		if err != nil {
			d.Status = entity.KindName(entity.KindOf(err))
			d.Error = respond.SanitizeError(err)
			diags = append(diags, d)
			continue
		}

		d.Status = "ok"
		d.Entries = len(feed.Entries)
		if d.Entries > 0 {
			d.LatestEntry = feed.Updated.UTC().Format(time.RFC3339)
		}
		if dumpDir != "" {
			path, err := dump(dumpDir, src.Name, *feed)
			if err != nil {
				slog.Warn("dump failed", slog.String("source", src.Name), slog.Any("error", err))
			} else {
				d.DumpPath = path
			}
		}
		diags = append(diags, d)
	}
	return diags
}

func dump(dir, name string, feed entity.Feed) (string, error) {
	body, err := atom.Marshal(feed)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".atom")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func printReport(w io.Writer, diags []Diagnostic) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tSTATUS\tENTRIES\tAUTH\tFETCH\tDURATION\tERROR")
	ok := 0
	for _, d := range diags {
		if d.Status == "ok" {
			ok++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%dms\t%s\n",
			d.Name, d.Kind, d.Status, d.Entries, d.AuthCalls, d.FetchCalls, d.DurationMS, d.Error)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d/%d sources ok\n", ok, len(diags))
}
