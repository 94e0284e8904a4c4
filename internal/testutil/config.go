package testutil

import (
	"os"
	"testing"

	"github.com/lepinkainen/demeter/internal/config"
	"github.com/spf13/viper"
)

// configState holds a snapshot of the config package globals.
type configState struct {
	overwriteFiles  bool
	updateSnapshots bool
	fdaURL          string
}

func saveConfigState() configState {
	return configState{
		overwriteFiles:  config.OverwriteFiles,
		updateSnapshots: config.UpdateSnapshots,
		fdaURL:          config.FDAURL,
	}
}

func (s configState) restore() {
	config.OverwriteFiles = s.overwriteFiles
	config.UpdateSnapshots = s.updateSnapshots
	config.FDAURL = s.fdaURL
}

// SetTestConfigOption customizes the state installed by
// SetTestConfigWithOptions.
type SetTestConfigOption func(*testConfigOptions)

type testConfigOptions struct {
	overwriteFiles  bool
	updateSnapshots bool
	fdaURL          string
}

// WithOverwriteFiles sets the OverwriteFiles flag.
func WithOverwriteFiles(v bool) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.overwriteFiles = v
	}
}

// WithUpdateSnapshots sets the UpdateSnapshots flag.
func WithUpdateSnapshots(v bool) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.updateSnapshots = v
	}
}

// WithFDAURL sets the FDA investigations page URL.
func WithFDAURL(url string) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.fdaURL = url
	}
}

// SetTestConfig resets viper and installs common test defaults for the
// config package globals. The previous state is restored when the test
// completes.
func SetTestConfig(t *testing.T) {
	t.Helper()
	SetTestConfigWithOptions(t)
}

// SetTestConfigWithOptions is SetTestConfig with custom overrides.
func SetTestConfigWithOptions(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()

	state := saveConfigState()
	viper.Reset()

	options := testConfigOptions{
		overwriteFiles:  true,
		updateSnapshots: false,
		fdaURL:          "https://fda.test/outbreaks",
	}
	for _, opt := range opts {
		opt(&options)
	}

	config.OverwriteFiles = options.overwriteFiles
	config.UpdateSnapshots = options.updateSnapshots
	config.FDAURL = options.fdaURL

	t.Cleanup(func() {
		state.restore()
		viper.Reset()
	})
}

// SetupTestCache points the cache at a database under the test sandbox with
// a short TTL. Returns the cache directory.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	cacheDir := env.Path("cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatalf("failed to create cache directory %q: %v", cacheDir, err)
	}

	viper.Set("cache.dbfile", env.Path("cache", "test-cache.db"))
	viper.Set("cache.ttl", "24h")

	return cacheDir
}
