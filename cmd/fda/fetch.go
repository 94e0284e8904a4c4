package fda

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/spf13/viper"

	"github.com/lepinkainen/demeter/internal/cache"
	"github.com/lepinkainen/demeter/internal/cmdutil"
	"github.com/lepinkainen/demeter/internal/config"
	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/demeter/internal/fileutil"
	"github.com/lepinkainen/demeter/internal/ratelimit"
)

const (
	defaultAutomationTimeout = 3 * time.Minute
	tablePollInterval        = 500 * time.Millisecond
	tableWaitTimeout         = 15 * time.Second

	activeTableName   = "Active Investigations"
	closedTablePrefix = "Closed Investigations"

	// fetchUserAgent identifies the scraper to fda.gov instead of hiding
	// behind the bundled browser's default string.
	fetchUserAgent = "demeter/1.0 (+https://github.com/lepinkainen/demeter)"
)

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// fdaLimiter spaces out page loads against fda.gov.
var fdaLimiter = ratelimit.New("fda", 1)

// fetchOptions holds configuration for one scrape of the investigation pages.
type fetchOptions struct {
	URL         string
	Years       []int
	Headless    bool
	Timeout     time.Duration
	Snapshot    bool
	SnapshotDir string
}

func fetchOptionsFromConfig(snapshot bool) fetchOptions {
	timeout := defaultAutomationTimeout
	if raw := viper.GetString("fda.automation.timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			slog.Warn("Invalid automation timeout, using default", "timeout", raw, "error", err)
		} else {
			timeout = parsed
		}
	}

	url := config.FDAURL
	if url == "" {
		url = viper.GetString("fda.url")
	}

	return fetchOptions{
		URL:      url,
		Years:    viper.GetIntSlice("fda.years"),
		Headless: !viper.GetBool("fda.automation.headful"),
		Timeout:  timeout,
		Snapshot: snapshot,
	}
}

// FetchWithParams scrapes the outbreak investigation tables and writes them
// as a JSON export to output. Scraped data is served from the cache when a
// fresh enough copy exists; snapshot runs always drive a live browser
// session so page captures can be taken.
func FetchWithParams(output string, snapshot bool) error {
	opts := fetchOptionsFromConfig(snapshot)
	if opts.URL == "" {
		return fmt.Errorf("no investigation page configured, set fda.url")
	}

	if snapshot {
		// Snapshots land next to the markdown notes so import can embed them
		snapshotDir := viper.GetString("fda.snapshotdir")
		if snapshotDir == "" {
			cfg := &cmdutil.BaseCommandConfig{ConfigKey: "fda"}
			if err := cmdutil.SetupOutputDir(cfg); err != nil {
				return err
			}
			snapshotDir = cfg.OutputDir
		}
		opts.SnapshotDir = snapshotDir
	}

	var records []TableRecord
	var fromCache bool
	var err error

	if snapshot {
		slog.Debug("Snapshot capture requested, bypassing cache")
		records, err = scrapeTables(context.Background(), opts)
	} else {
		records, fromCache, err = cache.GetOrFetchWithPolicy(
			cache.FDATable,
			fetchCacheKey(opts),
			func() ([]TableRecord, error) {
				return scrapeTables(context.Background(), opts)
			},
			func(records []TableRecord) bool {
				return len(records) > 0
			},
		)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no investigation tables found at %s", opts.URL)
	}

	written, err := fileutil.WriteJSONFile(records, output, true)
	if err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	totalRows := 0
	for _, record := range records {
		totalRows += len(record.Data)
	}
	slog.Info("Fetched investigation tables",
		"tables", len(records),
		"rows", totalRows,
		"from_cache", fromCache,
		"written", written,
		"output", output)
	return nil
}

// fetchCacheKey identifies one scrape configuration in the cache: the same
// page and year set always map to the same entry.
func fetchCacheKey(opts fetchOptions) string {
	years := make([]string, len(opts.Years))
	for i, year := range opts.Years {
		years[i] = strconv.Itoa(year)
	}
	return opts.URL + "?years=" + strings.Join(years, ",")
}

// scrapeTables drives a browser session over the active investigation page
// and each configured closed-year page. The active table is required; a
// closed-year page that fails is logged and skipped so one retired page
// cannot sink the whole scrape.
func scrapeTables(parentCtx context.Context, opts fetchOptions) ([]TableRecord, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultAutomationTimeout
	}

	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	allocCtx, cancelAllocator := chromedpExecAllocator(ctx, buildExecAllocatorOptions(opts)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedpContext(allocCtx)
	defer cancelBrowser()

	records := make([]TableRecord, 0, len(opts.Years)+1)

	active, err := scrapeTablePage(browserCtx, opts, opts.URL, activeTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", activeTableName, err)
	}
	records = append(records, active)

	for _, year := range opts.Years {
		name := fmt.Sprintf("%s %d", closedTablePrefix, year)
		table, err := scrapeTablePage(browserCtx, opts, closedYearURL(year), name)
		if err != nil {
			if errors.IsRateLimitError(err) {
				return nil, err
			}
			slog.Warn("Skipping closed investigation table", "table", name, "error", err)
			continue
		}
		records = append(records, table)
	}

	return records, nil
}

func buildExecAllocatorOptions(opts fetchOptions) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
	}
}

// closedYearURL builds the page URL for one year's closed investigations
// from the configured template.
func closedYearURL(year int) string {
	template := viper.GetString("fda.closedurl")
	if strings.Contains(template, "%d") {
		return fmt.Sprintf(template, year)
	}
	return template
}

func scrapeTablePage(ctx context.Context, opts fetchOptions, pageURL, name string) (TableRecord, error) {
	// Polite delay between page loads
	if err := fdaLimiter.Wait(ctx); err != nil {
		return TableRecord{}, errors.NewRateLimitError(
			fmt.Sprintf("rate limiter interrupted while fetching %s: %v", name, err))
	}

	slog.Info("Loading investigation page", "table", name, "url", pageURL)
	if err := chromedpRunner(ctx,
		emulation.SetUserAgentOverride(fetchUserAgent),
		chromedp.Navigate(pageURL),
	); err != nil {
		return TableRecord{}, fmt.Errorf("failed to open %s: %w", pageURL, err)
	}

	if err := waitForTable(ctx, name); err != nil {
		return TableRecord{}, err
	}

	rows, err := extractTableRows(ctx)
	if err != nil {
		return TableRecord{}, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	if opts.Snapshot {
		captureSnapshot(ctx, name, opts.SnapshotDir)
	}

	slog.Info("Scraped investigation table", "table", name, "rows", len(rows))
	return TableRecord{TableName: name, Data: rows}, nil
}

// waitForTable polls until the page has rendered a table. The investigation
// tables are injected by page scripts, so presence of the markup is not
// enough on a fresh navigation.
func waitForTable(ctx context.Context, name string) error {
	deadline := time.Now().Add(tableWaitTimeout)
	ticker := time.NewTicker(tablePollInterval)
	defer ticker.Stop()

	for {
		var ready bool
		checkScript := `!!document.querySelector("table tbody tr, table")`
		if err := chromedpRunner(ctx, chromedp.Evaluate(checkScript, &ready)); err == nil && ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("table wait canceled for %s: %w", name, ctx.Err())
		case <-ticker.C:
			if time.Now().After(deadline) {
				var currentURL string
				_ = chromedpRunner(ctx, chromedp.Location(&currentURL))
				slog.Debug("Table wait timeout", "table", name, "url", currentURL)
				return fmt.Errorf("timeout waiting for the %s table", name)
			}
		}
	}
}

// extractTableJS reads the first table on the page into an array of
// column/value objects. Header text keeps the page's own spacing quirks
// (nested header elements concatenate without separators), cell text is
// collapsed to single spaces.
const extractTableJS = `
(function() {
	const table = document.querySelector("table");
	if (!table) return [];

	const headerText = (el) => el.textContent.replace(/[\n\r\t]+/g, "").trim();
	const cellText = (el) => el.textContent.replace(/\s+/g, " ").trim();

	let headerCells = table.querySelectorAll("thead th");
	if (headerCells.length === 0) {
		const firstRow = table.querySelector("tr");
		headerCells = firstRow ? firstRow.querySelectorAll("th, td") : [];
	}
	const headers = Array.from(headerCells, headerText);

	let bodyRows = Array.from(table.querySelectorAll("tbody tr"));
	if (bodyRows.length === 0) {
		bodyRows = Array.from(table.querySelectorAll("tr")).slice(1);
	}

	return bodyRows.map((tr) => {
		const row = {};
		Array.from(tr.querySelectorAll("th, td")).forEach((cell, i) => {
			const column = headers[i] || "column" + i;
			row[column] = cellText(cell);
		});
		return row;
	});
})()
`

func extractTableRows(ctx context.Context) ([]map[string]string, error) {
	var rows []map[string]string
	if err := chromedpRunner(ctx, chromedp.Evaluate(extractTableJS, &rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

// captureSnapshot takes a full-page screenshot and saves it under the
// markdown output directory. Capture failures only cost the snapshot, never
// the scrape.
func captureSnapshot(ctx context.Context, name, dir string) {
	var capture []byte
	if err := chromedpRunner(ctx, chromedp.FullScreenshot(&capture, 90)); err != nil {
		slog.Warn("Failed to capture page snapshot", "table", name, "error", err)
		return
	}

	if _, err := fileutil.SaveSnapshot(capture, fileutil.SnapshotSaveOptions{
		OutputDir:       dir,
		Filename:        fileutil.BuildSnapshotFilename(name),
		UpdateSnapshots: config.UpdateSnapshots,
	}); err != nil {
		slog.Warn("Failed to save page snapshot", "table", name, "error", err)
	}
}
