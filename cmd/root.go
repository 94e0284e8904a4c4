package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/demeter/cmd/fda"
	"github.com/lepinkainen/demeter/internal/cache"
	"github.com/lepinkainen/demeter/internal/config"
	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

var (
	fetchTables   = fda.FetchWithParams
	importTables  = fda.ImportWithParams
	inspectExport = fda.InspectWithParams
)

// CLI is the full command tree for demeter.
type CLI struct {
	// Global flags
	Overwrite       bool `help:"Overwrite existing markdown files when processing"`
	UpdateSnapshots bool `help:"Re-capture page snapshots even if they already exist"`

	// Datasette flags
	Datasette   bool   `help:"Enable Datasette output" default:"true"`
	DatasetteDB string `help:"Path to SQLite database file" default:"./Food_Recalls.db"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Fetch   FetchCmd   `cmd:"" help:"Scrape the FDA outbreak investigation tables into a JSON export"`
	Import  ImportCmd  `cmd:"" help:"Import a scraped JSON export into markdown notes and the cache relation"`
	Inspect InspectCmd `cmd:"" help:"Print a metadata report for a scraped JSON export"`

	InvalidateCache cache.InvalidateCacheCmd `cmd:"" help:"Clear cached page data for a source"`
}

// FetchCmd scrapes the investigation pages into a JSON export.
type FetchCmd struct {
	Output   string `short:"o" help:"Path to the JSON export to write (defaults to fda.jsonfile from config)"`
	Snapshot bool   `help:"Capture a full-page snapshot of each investigation page"`
}

// ImportCmd unpacks a JSON export into markdown notes, optional JSON and CSV
// copies, and the cache relation.
type ImportCmd struct {
	Input      string `short:"f" help:"Path to the scraped JSON export"`
	Output     string `short:"o" help:"Subdirectory under markdown output directory for FDA files" default:"fda"`
	JSON       bool   `help:"Write the unpacked tables back out as JSON"`
	JSONOutput string `help:"Path to JSON output file (defaults to json/fda.json)"`
	CSV        bool   `help:"Write one CSV file per table"`
	Select     bool   `help:"Pick which tables to import interactively"`
}

// InspectCmd prints a metadata report for a JSON export.
type InspectCmd struct {
	Input       string `short:"f" help:"Path to the scraped JSON export"`
	Interactive bool   `short:"i" help:"Pick the previewed table interactively"`
}

// Execute parses the command line and runs the selected command.
func Execute() {
	initLogging()
	initConfig()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("demeter"),
		kong.Description("A tool to fetch FDA outbreak investigation tables and cache them as flat relations."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		// A user-driven stop from the table picker is not a failure
		if errors.IsStopProcessingError(err) {
			slog.Info("Stopped", "reason", err.Error())
			return
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	setConfigDefaults()

	viper.AutomaticEnv()
	bindEnvVars()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("No config file found, writing one with defaults")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Failed to write default config file", "error", err)
			}
			os.Exit(0)
		} else {
			slog.Error("Failed to read config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func setConfigDefaults() {
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("CSVOutputDir", "./csv/")
	viper.SetDefault("OverwriteFiles", false)

	viper.SetDefault("datasette.enabled", true)
	viper.SetDefault("datasette.dbfile", "./Food_Recalls.db")

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days

	viper.SetDefault("fda.url", "https://www.fda.gov/food/outbreaks-foodborne-illness/investigations-foodborne-illness-outbreaks")
	viper.SetDefault("fda.closedurl", "https://www.fda.gov/food/outbreaks-foodborne-illness/closed-outbreak-investigations-%d")
	viper.SetDefault("fda.jsonfile", "json/fda.json")
	viper.SetDefault("fda.years", []int{2025, 2024, 2023, 2022, 2021, 2020})
	viper.SetDefault("fda.automation.timeout", "3m")
}

func bindEnvVars() {
	bindings := map[string]string{
		"datasette.api_token":    "DATASETTE_API_TOKEN",
		"fda.automation.headful": "FDA_HEADFUL",
		"fda.automation.timeout": "FDA_AUTOMATION_TIMEOUT",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "env", env, "error", err)
		}
	}
}

// updateGlobalConfig copies parsed flag values onto the config globals and
// the viper keys the commands read.
func updateGlobalConfig(cli *CLI) {
	config.SetOverwriteFiles(cli.Overwrite)
	config.SetUpdateSnapshots(cli.UpdateSnapshots)

	viper.Set("datasette.enabled", cli.Datasette)
	viper.Set("datasette.dbfile", cli.DatasetteDB)
	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

// exportPath falls back to the configured fda.jsonfile when the flag was not
// given. Fetch, import, and inspect all share the one export location.
func exportPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString("fda.jsonfile")
}

func (f *FetchCmd) Run() error {
	output := exportPath(f.Output)
	if output == "" {
		return fmt.Errorf("output path is required (provide via --output flag or fda.jsonfile in config)")
	}

	return fetchTables(output, f.Snapshot)
}

func (i *ImportCmd) Run() error {
	input := exportPath(i.Input)
	if input == "" {
		return fmt.Errorf("input JSON file is required (provide via --input flag or fda.jsonfile in config)")
	}

	return importTables(input, i.Output, i.JSON, i.JSONOutput, i.CSV, i.Select, config.OverwriteFiles)
}

func (i *InspectCmd) Run() error {
	input := exportPath(i.Input)
	if input == "" {
		return fmt.Errorf("input JSON file is required (provide via --input flag or fda.jsonfile in config)")
	}

	return inspectExport(input, i.Interactive)
}

func initLogging() {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))
}
