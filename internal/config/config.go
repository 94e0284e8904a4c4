package config

import (
	"github.com/spf13/viper"
)

// Settings resolved once at startup from flags and the config file.
var (
	// OverwriteFiles allows regenerated files to replace existing ones.
	OverwriteFiles bool
	// UpdateSnapshots re-captures page snapshots that already exist on disk.
	UpdateSnapshots bool
	// FDAURL is the page the active investigation table is scraped from.
	FDAURL string
)

// InitConfig seeds the output directory defaults and copies the merged viper
// state into the package globals. Called after flags and the config file have
// been read.
func InitConfig() {
	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("CSVOutputDir", "./csv/")
	viper.SetDefault("OverwriteFiles", false)

	OverwriteFiles = viper.GetBool("OverwriteFiles")
	UpdateSnapshots = viper.GetBool("UpdateSnapshots")
	FDAURL = viper.GetString("fda.url")
}

// SetOverwriteFiles toggles overwriting of existing output files.
func SetOverwriteFiles(overwrite bool) {
	OverwriteFiles = overwrite
}

// SetUpdateSnapshots toggles re-capturing of existing page snapshots.
func SetUpdateSnapshots(update bool) {
	UpdateSnapshots = update
}
