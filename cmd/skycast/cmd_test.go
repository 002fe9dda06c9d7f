// ABOUTME: Tests for CLI commands
// ABOUTME: Runs commands end to end against badger in a temp dir, and with a stub geocoder

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harper/skycast/internal/config"
	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/geocode"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/persist"
	"github.com/harper/skycast/internal/resolver"
	"github.com/harper/skycast/internal/storage"
)

func init() {
	color.NoColor = true
}

var (
	london        = models.Candidate{ID: 2643743, Name: "London", Country: "United Kingdom", Admin1: "England", Latitude: 51.5074, Longitude: -0.1278}
	londonOntario = models.Candidate{ID: 6058560, Name: "London", Country: "Canada", Admin1: "Ontario", Latitude: 42.9834, Longitude: -81.233}
)

// offlineEnv points config at temp dirs with no network providers.
func offlineEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("SKYCAST_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SKYCAST_BACKEND", config.BackendBadger)
	t.Setenv("SKYCAST_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SKYCAST_GEOCODER", config.GeocoderNone)
	t.Setenv("SKYCAST_IP_LOOKUP", config.IPLookupNone)
	t.Setenv("SKYCAST_DEVICE", "")
	return dir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	if cerr := closeApp(); cerr != nil && err == nil {
		err = cerr
	}
	return buf.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

type stubGeocoder struct{}

func (stubGeocoder) Search(_ context.Context, q string) ([]models.Candidate, error) {
	if strings.EqualFold(q, "london") {
		return []models.Candidate{london, londonOntario}, nil
	}
	return nil, nil
}

func (stubGeocoder) Reverse(context.Context, float64, float64) (*models.Candidate, error) {
	return nil, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, loc models.Candidate) (forecast.Report, error) {
	return forecast.Report{
		Location: loc,
		Units:    forecast.Metric,
		Current:  forecast.Current{Temperature: 20, Condition: forecast.Clear},
	}, nil
}

// stubApp installs an App over memory stores with a stub geocoder.
func stubApp(t *testing.T) {
	t.Helper()
	durable := storage.NewMemoryStore()
	plain := storage.NewMemoryPlainStore()
	logger = logging.Discard()
	cfg = &config.Config{Backend: config.BackendMemory}
	app = &App{
		Resolver: resolver.New(resolver.Options{
			Persistence: persist.NewStore(durable, plain, logger),
			Geocoder:    stubGeocoder{},
		}),
		Forecast: stubFetcher{},
		Units:    forecast.Imperial,
		durable:  durable,
		plain:    plain,
		logger:   logger,
	}
	t.Cleanup(func() {
		if app != nil {
			_ = app.Close()
			app = nil
		}
	})
}

// runDirect calls a command's RunE with flags already set.
func runDirect(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()
	resetFlags(cmd)
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set flag %s: %v", name, err)
		}
	}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil); resetFlags(cmd) })
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func TestRootCmd_Metadata(t *testing.T) {
	if rootCmd.Use != "skycast" {
		t.Errorf("expected Use 'skycast', got %q", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "remembers your places") {
		t.Error("expected description in Long")
	}
	for _, name := range []string{"current", "search", "use", "save", "default", "remove", "saved", "recent", "forget", "export", "migrate", "backup", "restore", "serve", "mcp", "sync"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestNoResolverAnnotations(t *testing.T) {
	for _, cmd := range []*cobra.Command{migrateCmd, backupCmd, restoreCmd, syncStatusCmd, syncResetCmd} {
		if cmd.Annotations[annotationNoResolver] != "true" {
			t.Errorf("%s should not open the resolver", cmd.Name())
		}
	}
	if currentCmd.Annotations[annotationNoResolver] == "true" {
		t.Error("current needs the resolver")
	}
}

func TestCurrent_DevicePosition(t *testing.T) {
	offlineEnv(t)
	t.Setenv("SKYCAST_DEVICE", "51.5074,-0.1278")

	out := mustExecute(t, "current")
	if !strings.Contains(out, "51.5074") || !strings.Contains(out, "[geolocation]") {
		t.Errorf("expected device position, got %q", out)
	}
}

func TestCurrent_Fallback(t *testing.T) {
	offlineEnv(t)

	out := mustExecute(t, "current")
	if !strings.Contains(out, "New York") || !strings.Contains(out, "[fallback]") {
		t.Errorf("expected fallback, got %q", out)
	}
}

func TestCurrent_RemembersLastLocation(t *testing.T) {
	offlineEnv(t)

	mustExecute(t, "use", "--lat", "48.8566", "--lon", "2.3522")
	out := mustExecute(t, "current")
	if !strings.Contains(out, "48.8566") || !strings.Contains(out, "[recent]") {
		t.Errorf("expected last used location after restart, got %q", out)
	}
}

func TestUse_RequiresInput(t *testing.T) {
	offlineEnv(t)
	if _, err := execute(t, "use"); err == nil {
		t.Error("expected error without query or coordinates")
	}
	if _, err := execute(t, "use", "--lat", "95", "--lon", "0"); err == nil {
		t.Error("expected error for invalid latitude")
	}
}

func TestSearch_GeocoderDisabled(t *testing.T) {
	offlineEnv(t)
	if _, err := execute(t, "search", "paris"); err == nil {
		t.Error("expected error with geocoding disabled")
	}
}

func TestSavedFlow_Stubbed(t *testing.T) {
	stubApp(t)

	out, err := runDirect(t, searchCmd, nil, "london")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, " 1.") || !strings.Contains(out, "Ontario") {
		t.Errorf("expected numbered results, got %q", out)
	}

	out, err = runDirect(t, useCmd, map[string]string{"index": "2"}, "london")
	if err != nil {
		t.Fatalf("use failed: %v", err)
	}
	if !strings.Contains(out, "Ontario") {
		t.Errorf("expected London, Ontario, got %q", out)
	}

	if _, err := runDirect(t, saveCmd, nil); err != nil {
		t.Fatalf("save active failed: %v", err)
	}
	if _, err := runDirect(t, saveCmd, nil, "london"); err != nil {
		t.Fatalf("save query failed: %v", err)
	}

	out, _ = runDirect(t, savedCmd, nil)
	if !strings.Contains(out, "* London, Ontario, Canada") {
		t.Errorf("expected first saved location as default, got %q", out)
	}
	if !strings.Contains(out, "London, England, United Kingdom") {
		t.Errorf("expected second saved location, got %q", out)
	}

	if _, err := runDirect(t, defaultCmd, nil, "2643743"); err != nil {
		t.Fatalf("default failed: %v", err)
	}
	def, _ := app.Resolver.Default()
	if def.ID != london.ID {
		t.Errorf("expected London default, got %+v", def)
	}

	out, err = runDirect(t, removeCmd, nil, "2643743")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(out, "default is now London, Ontario") {
		t.Errorf("expected promotion message, got %q", out)
	}

	if _, err := runDirect(t, removeCmd, nil, "999"); err == nil {
		t.Error("expected error for unknown id")
	}
	if _, err := runDirect(t, defaultCmd, nil, "abc"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestRemove_ReportsDefaultFromResolver(t *testing.T) {
	stubApp(t)
	ctx := context.Background()
	for _, c := range []models.Candidate{london, londonOntario} {
		if err := app.Resolver.SaveLocation(ctx, models.SavedLocation{Candidate: c}); err != nil {
			t.Fatal(err)
		}
	}

	// London is the default; removing Ontario must not mention it.
	out, err := runDirect(t, removeCmd, nil, "6058560")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if strings.Contains(out, "default") {
		t.Errorf("unexpected default message for a non-default removal: %q", out)
	}

	out, err = runDirect(t, removeCmd, nil, "2643743")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(out, "no default location left") {
		t.Errorf("expected cleared default message, got %q", out)
	}
	if _, ok := app.Resolver.Default(); ok {
		t.Error("expected no default")
	}
}

func TestUse_IndexOutOfRange(t *testing.T) {
	stubApp(t)
	if _, err := runDirect(t, useCmd, map[string]string{"index": "5"}, "london"); err == nil {
		t.Error("expected error for out of range index")
	}
	if _, err := runDirect(t, useCmd, nil, "atlantis"); err == nil {
		t.Error("expected error for no results")
	}
}

func TestSave_UnnamedActive(t *testing.T) {
	stubApp(t)
	if err := app.Resolver.SetLocation(context.Background(), models.Candidate{Latitude: 1, Longitude: 2}, models.SourceSearch); err != nil {
		t.Fatal(err)
	}
	if _, err := runDirect(t, saveCmd, nil); err == nil {
		t.Error("expected error saving an unnamed location")
	}
}

func TestSyntheticIDsAreUsableArguments(t *testing.T) {
	stubApp(t)
	ctx := context.Background()
	c := models.Candidate{Name: "Springfield", Country: "United States", Latitude: 39.7817, Longitude: -89.6501}
	c.ID = geocode.SyntheticID(c.Latitude, c.Longitude)
	if err := app.Resolver.SaveLocation(ctx, models.SavedLocation{Candidate: c}); err != nil {
		t.Fatal(err)
	}

	arg := strconv.FormatInt(c.ID, 10)
	for _, cmd := range []*cobra.Command{defaultCmd, removeCmd, forgetCmd} {
		resetFlags(cmd)
		if err := cmd.ParseFlags([]string{arg}); err != nil {
			t.Fatalf("%s rejected id %s: %v", cmd.Name(), arg, err)
		}
		if got := cmd.Flags().Args(); len(got) != 1 || got[0] != arg {
			t.Errorf("%s parsed args %v", cmd.Name(), got)
		}
	}

	if _, err := runDirect(t, defaultCmd, nil, arg); err != nil {
		t.Fatalf("default failed: %v", err)
	}
	if _, err := runDirect(t, removeCmd, nil, arg); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(app.Resolver.Saved()) != 0 {
		t.Error("expected saved list to be empty")
	}
}

func TestRecentAndForget_Stubbed(t *testing.T) {
	stubApp(t)
	if err := app.Resolver.SetLocation(context.Background(), london, models.SourceSearch); err != nil {
		t.Fatal(err)
	}

	out, _ := runDirect(t, recentCmd, nil)
	if !strings.Contains(out, "id:2643743") {
		t.Errorf("expected London in recent, got %q", out)
	}

	if _, err := runDirect(t, forgetCmd, nil, "2643743"); err != nil {
		t.Fatalf("forget failed: %v", err)
	}
	out, _ = runDirect(t, recentCmd, nil)
	if !strings.Contains(out, "No recent locations") {
		t.Errorf("expected empty recent list, got %q", out)
	}
}

func TestCurrent_WithWeather(t *testing.T) {
	stubApp(t)

	out, err := runDirect(t, currentCmd, map[string]string{"weather": "true"})
	if err != nil {
		t.Fatalf("current --weather failed: %v", err)
	}
	if !strings.Contains(out, "68°F") || !strings.Contains(out, "clear") {
		t.Errorf("expected converted forecast, got %q", out)
	}
}

func TestExport_Stubbed(t *testing.T) {
	stubApp(t)
	ctx := context.Background()
	if err := app.Resolver.SaveLocation(ctx, models.SavedLocation{Candidate: london}); err != nil {
		t.Fatal(err)
	}

	out, err := runDirect(t, exportCmd, nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var fc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &fc); err != nil {
		t.Fatalf("invalid geojson: %v\n%s", err, out)
	}
	if len(fc["features"].([]interface{})) != 1 {
		t.Errorf("expected 1 feature, got %v", fc["features"])
	}

	path := filepath.Join(t.TempDir(), "recent.geojson")
	if _, err := runDirect(t, exportCmd, map[string]string{"what": "recent", "output": path}); err != nil {
		t.Fatalf("export to file failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "FeatureCollection") {
		t.Errorf("unexpected file contents %s", data)
	}

	if _, err := runDirect(t, exportCmd, map[string]string{"what": "everything"}); err == nil {
		t.Error("expected error for unsupported selection")
	}
}

func TestMigrate_BadgerToBadgerDir(t *testing.T) {
	dir := offlineEnv(t)
	mustExecute(t, "use", "--lat", "48.8566", "--lon", "2.3522")

	target := filepath.Join(dir, "copy")
	out := mustExecute(t, "migrate", "--to", "badger", "--data-dir", target)
	if !strings.Contains(out, "Migration complete") {
		t.Errorf("expected completion message, got %q", out)
	}

	// A second run into the now non-empty directory needs --force.
	if _, err := execute(t, "migrate", "--to", "badger", "--data-dir", target); err == nil {
		t.Error("expected error for non-empty target")
	}
	mustExecute(t, "migrate", "--to", "badger", "--data-dir", target, "--force")
}

func TestMigrate_InvalidTarget(t *testing.T) {
	offlineEnv(t)
	if _, err := execute(t, "migrate", "--to", "sqlite"); err == nil {
		t.Error("expected error for unsupported backend")
	}
	if _, err := execute(t, "migrate", "--to", "badger"); err == nil {
		t.Error("expected error when target equals source")
	}
}

func TestBackupRestore(t *testing.T) {
	dir := offlineEnv(t)
	mustExecute(t, "use", "--lat", "48.8566", "--lon", "2.3522")

	path := filepath.Join(dir, "places.yaml")
	out := mustExecute(t, "backup", "-o", path)
	if !strings.Contains(out, "Backup created") {
		t.Errorf("expected backup message, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(data), "latitude: 48.8566") {
		t.Errorf("expected last location in backup, got %s", data)
	}

	// Restore a default into a fresh data dir.
	t.Setenv("SKYCAST_DATA_DIR", filepath.Join(dir, "fresh"))
	restore := filepath.Join(dir, "restore.yaml")
	body := "version: 1\ndefault: {id: 3143244, name: Oslo, country: Norway, latitude: 59.91, longitude: 10.75}\n"
	if err := os.WriteFile(restore, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	out = mustExecute(t, "restore", restore, "--yes")
	if !strings.Contains(out, "Restore complete") {
		t.Errorf("expected restore message, got %q", out)
	}

	out = mustExecute(t, "current")
	if !strings.Contains(out, "Oslo") || !strings.Contains(out, "[default]") {
		t.Errorf("expected restored default, got %q", out)
	}
}

func TestRestore_DeclinedAndInvalid(t *testing.T) {
	dir := offlineEnv(t)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "restore", path, "--yes"); err == nil {
		t.Error("expected error for unsupported version")
	}

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetIn(strings.NewReader("n\n"))
	defer rootCmd.SetIn(nil)
	out, err := execute(t, "restore", good)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out, "Canceled.") {
		t.Errorf("expected cancel, got %q", out)
	}
}

func TestSyncStatus_NotCharm(t *testing.T) {
	offlineEnv(t)
	out := mustExecute(t, "sync", "status")
	if !strings.Contains(out, "Sync is off") {
		t.Errorf("expected sync off message, got %q", out)
	}
}
