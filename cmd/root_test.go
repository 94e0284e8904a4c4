package cmd

import (
	"os"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/demeter/internal/cache"
	"github.com/lepinkainen/demeter/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCmdState(t *testing.T) {
	origOverwrite := config.OverwriteFiles
	origSnapshots := config.UpdateSnapshots

	t.Cleanup(func() {
		config.OverwriteFiles = origOverwrite
		config.UpdateSnapshots = origSnapshots
		viper.Reset()
	})

	viper.Reset()
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{"demeter"}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("demeter"),
		kong.Description("A tool to fetch FDA outbreak investigation tables and cache them as flat relations."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

func TestUpdateGlobalConfig(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{
		Overwrite:       true,
		UpdateSnapshots: true,
		Datasette:       false,
		DatasetteDB:     "/tmp/Food_Recalls.db",
		CacheDBFile:     "/tmp/cache.db",
		CacheTTL:        "12h",
	}

	updateGlobalConfig(cli)

	assert.True(t, config.OverwriteFiles)
	assert.True(t, config.UpdateSnapshots)
	assert.False(t, viper.GetBool("datasette.enabled"))
	assert.Equal(t, "/tmp/Food_Recalls.db", viper.GetString("datasette.dbfile"))
	assert.Equal(t, "/tmp/cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "12h", viper.GetString("cache.ttl"))
}

func TestFetchCommandParsing(t *testing.T) {
	resetCmdState(t)

	// Test that Kong correctly parses fetch command structure
	cli, _ := parseCLI(t, "fetch", "-o", "exports/fda.json", "--snapshot")

	assert.Equal(t, "exports/fda.json", cli.Fetch.Output)
	assert.True(t, cli.Fetch.Snapshot)
}

func TestImportCommandParsing(t *testing.T) {
	resetCmdState(t)

	// Test that Kong correctly parses import command structure
	cli, _ := parseCLI(t, "import", "-f", "test.json", "-o", "recalls", "--json", "--csv", "--select")

	assert.Equal(t, "test.json", cli.Import.Input)
	assert.Equal(t, "recalls", cli.Import.Output)
	assert.True(t, cli.Import.JSON)
	assert.True(t, cli.Import.CSV)
	assert.True(t, cli.Import.Select)
	assert.Equal(t, "", cli.Import.JSONOutput)
}

func TestImportCommandDefaults(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "import", "-f", "test.json")

	assert.Equal(t, "fda", cli.Import.Output)
	assert.False(t, cli.Import.JSON)
	assert.False(t, cli.Import.CSV)
	assert.False(t, cli.Import.Select)
}

func TestInspectCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "inspect", "-f", "test.json", "-i")

	assert.Equal(t, "test.json", cli.Inspect.Input)
	assert.True(t, cli.Inspect.Interactive)
}

func TestInvalidateCacheCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "invalidate-cache", "fda")

	assert.Equal(t, "fda", cli.InvalidateCache.Source)
}

func TestCommandsRequireInput(t *testing.T) {
	resetCmdState(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "fetch missing output",
			args: []string{"fetch"},
			want: "output path is required",
		},
		{
			name: "import missing input",
			args: []string{"import"},
			want: "input JSON file is required",
		},
		{
			name: "inspect missing input",
			args: []string{"inspect"},
			want: "input JSON file is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, ctx := parseCLI(t, tt.args...)
			updateGlobalConfig(cli)
			err := ctx.Run()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFetchRunResolvesOutputFromConfig(t *testing.T) {
	resetCmdState(t)

	origFetch := fetchTables
	t.Cleanup(func() { fetchTables = origFetch })

	var gotOutput string
	var gotSnapshot bool
	fetchTables = func(output string, snapshot bool) error {
		gotOutput = output
		gotSnapshot = snapshot
		return nil
	}

	viper.Set("fda.jsonfile", "exports/fda.json")

	cli, ctx := parseCLI(t, "fetch", "--snapshot")
	updateGlobalConfig(cli)
	require.NoError(t, ctx.Run())

	assert.Equal(t, "exports/fda.json", gotOutput)
	assert.True(t, gotSnapshot)
}

func TestImportRunPassesFlagsThrough(t *testing.T) {
	resetCmdState(t)

	origImport := importTables
	t.Cleanup(func() { importTables = origImport })

	type call struct {
		input      string
		output     string
		writeJSON  bool
		jsonOutput string
		writeCSV   bool
		pick       bool
		overwrite  bool
	}
	var got call
	importTables = func(input, output string, writeJSON bool, jsonOutput string, writeCSV, pick, overwrite bool) error {
		got = call{
			input:      input,
			output:     output,
			writeJSON:  writeJSON,
			jsonOutput: jsonOutput,
			writeCSV:   writeCSV,
			pick:       pick,
			overwrite:  overwrite,
		}
		return nil
	}

	cli, ctx := parseCLI(t, "--overwrite", "import", "-f", "test.json", "--json", "--json-output", "out/fda.json", "--csv")
	updateGlobalConfig(cli)
	require.NoError(t, ctx.Run())

	assert.Equal(t, "test.json", got.input)
	assert.Equal(t, "fda", got.output)
	assert.True(t, got.writeJSON)
	assert.Equal(t, "out/fda.json", got.jsonOutput)
	assert.True(t, got.writeCSV)
	assert.False(t, got.pick)
	assert.True(t, got.overwrite)
}

func TestInspectRunResolvesInputFromConfig(t *testing.T) {
	resetCmdState(t)

	origInspect := inspectExport
	t.Cleanup(func() { inspectExport = origInspect })

	var gotInput string
	var gotInteractive bool
	inspectExport = func(input string, interactive bool) error {
		gotInput = input
		gotInteractive = interactive
		return nil
	}

	viper.Set("fda.jsonfile", "json/fda.json")

	cli, ctx := parseCLI(t, "inspect")
	updateGlobalConfig(cli)
	require.NoError(t, ctx.Run())

	assert.Equal(t, "json/fda.json", gotInput)
	assert.False(t, gotInteractive)
}

func TestCLIDefaultFlags(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "inspect", "-f", "test.json")

	// Test default values
	assert.False(t, cli.Overwrite, "Overwrite should default to false")
	assert.False(t, cli.UpdateSnapshots, "UpdateSnapshots should default to false")
	assert.True(t, cli.Datasette, "Datasette should default to true")
	assert.Equal(t, "./Food_Recalls.db", cli.DatasetteDB, "DatasetteDB should default to ./Food_Recalls.db")
	assert.Equal(t, "./cache.db", cli.CacheDBFile, "CacheDBFile should default to ./cache.db")
	assert.Equal(t, "720h", cli.CacheTTL, "CacheTTL should default to 720h")
}

func TestCLIFlagsOverrideDefaults(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t,
		"--overwrite",
		"--update-snapshots",
		"--datasette=false",
		"--datasette-db", "/custom/Food_Recalls.db",
		"--cache-db-file", "/custom/cache.db",
		"--cache-ttl", "24h",
		"inspect", "-f", "test.json")

	// Test overridden values
	assert.True(t, cli.Overwrite, "Overwrite flag should be set")
	assert.True(t, cli.UpdateSnapshots, "UpdateSnapshots flag should be set")
	assert.False(t, cli.Datasette, "Datasette should be disabled")
	assert.Equal(t, "/custom/Food_Recalls.db", cli.DatasetteDB)
	assert.Equal(t, "/custom/cache.db", cli.CacheDBFile)
	assert.Equal(t, "24h", cli.CacheTTL)
}

func TestInitConfigSetsDefaults(t *testing.T) {
	resetCmdState(t)

	// Set defaults directly without calling initConfig to avoid os.Exit
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("CSVOutputDir", "./csv/")
	viper.SetDefault("OverwriteFiles", false)
	viper.SetDefault("datasette.enabled", true)
	viper.SetDefault("datasette.dbfile", "./Food_Recalls.db")
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h")
	viper.SetDefault("fda.jsonfile", "json/fda.json")
	viper.SetDefault("fda.years", []int{2025, 2024, 2023, 2022, 2021, 2020})
	viper.SetDefault("fda.automation.timeout", "3m")

	// Verify default values are accessible from viper
	assert.Equal(t, "./markdown/", viper.GetString("MarkdownOutputDir"))
	assert.Equal(t, "./json/", viper.GetString("JSONOutputDir"))
	assert.Equal(t, "./csv/", viper.GetString("CSVOutputDir"))
	assert.False(t, viper.GetBool("OverwriteFiles"))
	assert.True(t, viper.GetBool("datasette.enabled"))
	assert.Equal(t, "./Food_Recalls.db", viper.GetString("datasette.dbfile"))
	assert.Equal(t, "./cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "720h", viper.GetString("cache.ttl"))
	assert.Equal(t, "json/fda.json", viper.GetString("fda.jsonfile"))
	assert.Equal(t, []int{2025, 2024, 2023, 2022, 2021, 2020}, viper.GetIntSlice("fda.years"))
	assert.Equal(t, "3m", viper.GetString("fda.automation.timeout"))
}

func TestEnvironmentVariableBinding(t *testing.T) {
	resetCmdState(t)

	// Set environment variables
	t.Setenv("DATASETTE_API_TOKEN", "test-token")
	t.Setenv("FDA_HEADFUL", "true")
	t.Setenv("FDA_AUTOMATION_TIMEOUT", "5m")

	// Set up environment variable bindings without calling initConfig
	viper.AutomaticEnv()
	require.NoError(t, viper.BindEnv("datasette.api_token", "DATASETTE_API_TOKEN"))
	require.NoError(t, viper.BindEnv("fda.automation.headful", "FDA_HEADFUL"))
	require.NoError(t, viper.BindEnv("fda.automation.timeout", "FDA_AUTOMATION_TIMEOUT"))

	// Verify environment variables are bound
	assert.Equal(t, "test-token", viper.GetString("datasette.api_token"))
	assert.True(t, viper.GetBool("fda.automation.headful"))
	assert.Equal(t, "5m", viper.GetString("fda.automation.timeout"))
}

func TestInitLogging(t *testing.T) {
	// Should not panic
	require.NotPanics(t, func() {
		initLogging()
	})
}

func TestCommandStructure(t *testing.T) {
	resetCmdState(t)

	// Verify that CLI structure has all expected commands
	cli := &CLI{}

	assert.NotNil(t, cli.Fetch)
	assert.NotNil(t, cli.Import)
	assert.NotNil(t, cli.Inspect)
	assert.IsType(t, cache.InvalidateCacheCmd{}, cli.InvalidateCache)
}
