package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

func TestCacheDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", appName) {
		t.Errorf("cacheDir() = %q, want XDG_CACHE_HOME/%s", dir, appName)
	}
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestOutputBase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"promo.toml", "promo"},
		{"designs/promo.json", "designs/promo"},
		{"noext", "noext"},
		{"a.b.toml", "a.b"},
	}
	for _, tt := range tests {
		if got := outputBase(tt.input); got != tt.want {
			t.Errorf("outputBase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{pipeline.DefaultFormat}},
		{"png", []string{"png"}},
		{"png,jpeg,print", []string{"png", "jpeg", "print"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestArtifactExt(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{pipeline.FormatPNG, "png"},
		{pipeline.FormatJPEG, "jpg"},
		{pipeline.FormatPrint, "print.png"},
		{pipeline.FormatDoc, "doc.png"},
		{"unknown", "png"},
	}
	for _, tt := range tests {
		if got := artifactExt(tt.format); got != tt.want {
			t.Errorf("artifactExt(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestNewProviderDefaultsToMock(t *testing.T) {
	for _, url := range []string{"", "mock"} {
		p, err := newProvider(url, "")
		if err != nil {
			t.Fatalf("newProvider(%q) error: %v", url, err)
		}
		if p.Name() != "mock" {
			t.Errorf("newProvider(%q).Name() = %q, want mock", url, p.Name())
		}
	}

	p, err := newProvider("https://api.example.com", "sd-xl")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "remote" {
		t.Errorf("Name() = %q, want remote", p.Name())
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()

	want := []string{"layout", "mask", "prompt", "generate", "compose", "run", "serve", "cache", "pushgraph", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()

	tplPath := filepath.Join(dir, "promo.json")
	tplJSON := `{
  "id": "promo-1",
  "dimensions": {"width": 400, "height": 200},
  "zones": [
    {"id": "headline", "type": "text", "bounds": {"x": 10, "y": 10, "w": 50, "h": 20},
     "mask_value": 0, "text": {"field_mapping": "headline"}}
  ]
}`
	if err := os.WriteFile(tplPath, []byte(tplJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(dataPath, []byte(`{"headline": "Hello"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tpl, userData, style, err := loadInputs(tplPath, dataPath, "")
	if err != nil {
		t.Fatalf("loadInputs() error: %v", err)
	}
	if tpl.ID != "promo-1" {
		t.Errorf("template ID = %q, want promo-1", tpl.ID)
	}
	if got := userData.Get("headline"); got != "Hello" {
		t.Errorf("user data headline = %q, want Hello", got)
	}
	if style != nil {
		t.Error("style should be nil when no style path given")
	}

	if _, _, _, err := loadInputs(filepath.Join(dir, "missing.toml"), "", ""); err == nil {
		t.Error("expected error for missing template file")
	}
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	logger := LoggerFromContext(t.Context())
	if logger == nil {
		t.Fatal("LoggerFromContext returned nil for bare context")
	}

	c := New(os.Stderr, LogDebug)
	ctx := WithLogger(t.Context(), c.Logger)
	if got := LoggerFromContext(ctx); got != c.Logger {
		t.Error("LoggerFromContext did not return the attached logger")
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("debug message missing after SetLogLevel(LogDebug)")
	}
}
