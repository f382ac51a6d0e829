// Command browse prints the OEWS year index of the data repository and,
// optionally, a preview of one spreadsheet or its CSV export.
//
//	browse                                   list years and files
//	browse -year 2023 -file state_M2023_dl.xlsx -limit 20
//	browse -year 2023 -file state_M2023_dl.xlsx -csv out/alabama.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/catalog"
	"wagebrowser/internal/config"
	"wagebrowser/internal/dataset"
	"wagebrowser/internal/exporter"
	"wagebrowser/internal/infrastructure"
	"wagebrowser/internal/remote"
	"wagebrowser/internal/services"
	"wagebrowser/pkg/contracts/domain"
)

// maxCellWidth truncates long occupation titles in the preview
const maxCellWidth = 32

type options struct {
	configFile string
	year       int
	file       string
	limit      int
	limitSet   bool
	csvPath    string
	timeout    time.Duration
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "browse:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configFile, "config", "", "YAML config file (defaults to config.yaml or configs/config.yaml when present)")
	fs.IntVar(&opts.year, "year", 0, "survey year to preview, e.g. 2023")
	fs.StringVar(&opts.file, "file", "", "spreadsheet name within the year folder")
	fs.IntVar(&opts.limit, "limit", 10, "preview rows, 0 for all (CSV export writes every row unless set)")
	fs.StringVar(&opts.csvPath, "csv", "", "write the parsed table to this CSV file instead of printing it")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "debug | info | warn | error")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "limit" {
			opts.limitSet = true
		}
	})
	if opts.limit < 0 {
		return opts, fmt.Errorf("-limit must not be negative")
	}
	if (opts.year == 0) != (opts.file == "") {
		return opts, fmt.Errorf("-year and -file must be given together")
	}
	if opts.csvPath != "" && opts.file == "" {
		return opts, fmt.Errorf("-csv needs -year and -file")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return err
	}
	logger := infrastructure.NewLoggerTo(stderr, opts.logLevel)

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	browser := newBrowser(cfg.Remote, logger)

	if opts.file == "" {
		return printIndex(ctx, browser, stdout)
	}

	loaded, err := browser.Loaded(ctx, opts.year, opts.file)
	if err != nil {
		return err
	}

	if opts.csvPath != "" {
		limit := 0
		if opts.limitSet {
			limit = opts.limit
		}
		writer := exporter.NewCSVWriter(logger)
		if err := writer.ExportTable(opts.csvPath, loaded.Table, exporter.TableOptions{Limit: limit, BOMPrefix: true}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", opts.csvPath)
		return nil
	}
	return printTable(stdout, loaded, opts.limit)
}

// loadConfig uses the server's config discovery unless a file is named
func loadConfig(file string) (*config.Config, error) {
	if file == "" {
		return config.Load()
	}
	return config.LoadFile(file)
}

func newBrowser(cfg config.RemoteConfig, logger *slog.Logger) *services.BrowserService {
	client := remote.NewClient(cfg, logger)
	indexer := catalog.NewIndexer(client, cache.NewMemory[string, []domain.DirectoryEntry](), logger)
	loader := dataset.NewLoader(client, cache.NewMemory[string, []byte](), cache.NewMemory[string, dataset.Entry](), logger)
	return services.NewBrowserService(indexer, loader, cfg.BasePath, client.Source(), logger)
}

func printIndex(ctx context.Context, browser *services.BrowserService, out io.Writer) error {
	view, err := browser.Index(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %d years, %d files\n\n", view.Source, len(view.Years), view.FileCount)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tFILE\tPATH")
	for _, y := range view.Years {
		for _, f := range y.Files {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", y.Year, f.Name, f.Path)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, w := range view.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

func printTable(out io.Writer, loaded *domain.LoadedFile, limit int) error {
	head := loaded.Table.Head(limit)

	fmt.Fprintf(out, "%s  %d rows, %d columns\n\n", loaded.Descriptor.Path, loaded.Table.RowCount, len(head.Columns))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(head.Columns, "\t"))
	for _, row := range head.Cells {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = displayCell(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(head.Cells) < len(loaded.Table.Cells) {
		fmt.Fprintf(out, "... %d more rows\n", len(loaded.Table.Cells)-len(head.Cells))
	}
	return nil
}

func displayCell(c domain.Cell) string {
	if c.IsMissing() {
		return "-"
	}
	s := c.String()
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}
