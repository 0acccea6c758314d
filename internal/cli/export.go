package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/scmmishra/clickboard/internal/config"
	"github.com/scmmishra/clickboard/internal/export"
	"github.com/scmmishra/clickboard/internal/linkly"
	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/stats"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch link statistics once and write them as CSV or JSON",
		Long: `Fetches every link in the configured workspace, applies the filters, and
writes the rows to --out (or stdout). Configuration comes from the same
CLICKBOARD_* environment variables the server reads.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().StringP("format", "f", "csv", "Output format: csv or json")
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().Bool("with-country", false, "Add a Country column to CSV output")
	cmd.Flags().Bool("all-traffic", false, "Include links whose traffic is mostly robots")
	cmd.Flags().StringSlice("country", nil, "Only include links whose top country is one of these codes")
	cmd.Flags().String("search", "", "Only include links whose name contains this text")
	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().String("sort", "", "Sort by name, today, thirty_day or total")
	cmd.Flags().String("dir", "", "Sort direction: asc or desc")
	return cmd
}

// exportFilter maps flags onto the report query parameters so the command
// and the web page parse filters the same way.
func exportFilter(cmd *cobra.Command, cfg *config.Config) (models.Filter, error) {
	q := url.Values{}
	if all, _ := cmd.Flags().GetBool("all-traffic"); all {
		q.Set("bots", "all")
	}
	countries, _ := cmd.Flags().GetStringSlice("country")
	for _, c := range countries {
		q.Add("country", c)
	}
	for _, name := range []string{"search", "from", "to", "sort", "dir"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			q.Set(name, v)
		}
	}
	return models.FilterFromQuery(q, cfg.Location)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := commandLogger(cmd, "export: ")

	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f, err := exportFilter(cmd, cfg)
	if err != nil {
		return err
	}

	client, err := linkly.NewClient(linkly.Options{
		BaseURL:   cfg.APIURL,
		Workspace: cfg.WorkspaceID,
		APIKey:    cfg.APIKey,
		AuthMode:  linkly.AuthMode(cfg.AuthMode),
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	svc := stats.NewService(client, stats.Config{
		Location:    cfg.Location,
		PageSize:    cfg.PageSize,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})

	rows, err := svc.FetchErr(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	logger.Printf("fetched %d rows", len(rows))

	withCountry, _ := cmd.Flags().GetBool("with-country")
	rows = models.SearchByName(rows, f.Search)

	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return export.Write(cmd.OutOrStdout(), format, rows, withCountry)
	}
	return writeFile(path, func(w io.Writer) error {
		return export.Write(w, format, rows, withCountry)
	})
}

// writeFile creates path and runs write against it. A failed write or close
// is returned.
func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(file)
}
