package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/temirov/repoctx/internal/utils"
)

type configTestCase struct {
	name            string
	globalContent   string
	localContent    string
	explicitPath    string
	explicitContent string
	expectFormat    string
	expectMaxFiles  *int
	expectTokens    *bool
	expectModel     string
	expectClipboard *bool
	expectEndpoint  string
	expectAddress   string
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:            "local_overrides_global",
			globalContent:   "snapshot:\n  format: raw\n  max_files: 10\n  clipboard: true\ngenerate:\n  endpoint: https://global.example/v1\n",
			localContent:    "snapshot:\n  format: xml\n  tokens:\n    enabled: true\n    model: custom\n  clipboard: false\nserve:\n  address: :9000\n",
			expectFormat:    "xml",
			expectMaxFiles:  intPointer(10),
			expectTokens:    boolPointer(true),
			expectModel:     "custom",
			expectClipboard: boolPointer(false),
			expectEndpoint:  "https://global.example/v1",
			expectAddress:   ":9000",
		},
		{
			name:            "explicit_path_replaces_local",
			globalContent:   "snapshot:\n  format: json\n",
			localContent:    "snapshot:\n  format: xml\n",
			explicitPath:    "custom.yaml",
			explicitContent: "snapshot:\n  format: raw\n  max_files: 3\n",
			expectFormat:    "raw",
			expectMaxFiles:  intPointer(3),
		},
		{
			name:          "global_only",
			globalContent: "snapshot:\n  tokens:\n    enabled: false\n",
			expectTokens:  boolPointer(false),
		},
		{
			name: "no_files",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.ConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.ConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte(testCase.explicitContent), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)

			loaded, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}
			snapshot := loaded.Snapshot
			if snapshot.Format != testCase.expectFormat {
				t.Fatalf("expected format %q, got %q", testCase.expectFormat, snapshot.Format)
			}
			assertIntPointer(t, "max_files", snapshot.MaxFiles, testCase.expectMaxFiles)
			assertBoolPointer(t, "tokens.enabled", snapshot.Tokens.Enabled, testCase.expectTokens)
			assertBoolPointer(t, "clipboard", snapshot.Clipboard, testCase.expectClipboard)
			if snapshot.Tokens.Model != testCase.expectModel {
				t.Fatalf("expected model %q, got %q", testCase.expectModel, snapshot.Tokens.Model)
			}
			if loaded.Generate.Endpoint != testCase.expectEndpoint {
				t.Fatalf("expected endpoint %q, got %q", testCase.expectEndpoint, loaded.Generate.Endpoint)
			}
			if loaded.Serve.Address != testCase.expectAddress {
				t.Fatalf("expected address %q, got %q", testCase.expectAddress, loaded.Serve.Address)
			}
		})
	}
}

func assertBoolPointer(t *testing.T, name string, actual *bool, expected *bool) {
	t.Helper()
	if (actual == nil) != (expected == nil) || (actual != nil && *actual != *expected) {
		t.Fatalf("unexpected %s: got %v, want %v", name, actual, expected)
	}
}

func assertIntPointer(t *testing.T, name string, actual *int, expected *int) {
	t.Helper()
	if (actual == nil) != (expected == nil) || (actual != nil && *actual != *expected) {
		t.Fatalf("unexpected %s: got %v, want %v", name, actual, expected)
	}
}

func TestDefaultTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), utils.ConfigFileName)
	if err := os.WriteFile(path, []byte(DefaultTemplate()), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}
	loaded, err := loadConfigurationFromPath(path)
	if err != nil {
		t.Fatalf("loadConfigurationFromPath error: %v", err)
	}
	if loaded.Snapshot.BatchSize == nil || *loaded.Snapshot.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %v", loaded.Snapshot.BatchSize)
	}
	if loaded.Snapshot.MaxFileCharacters == nil || *loaded.Snapshot.MaxFileCharacters != 100000 {
		t.Fatalf("expected character limit 100000, got %v", loaded.Snapshot.MaxFileCharacters)
	}
	if loaded.Generate.RatePerSecond == nil || *loaded.Generate.RatePerSecond != 1 {
		t.Fatalf("expected rate 1, got %v", loaded.Generate.RatePerSecond)
	}
	if loaded.Generate.APIKeyEnv != "OPENROUTER_API" || loaded.Serve.Address != "127.0.0.1:8080" {
		t.Fatalf("unexpected template values: %+v", loaded)
	}
}

func TestLoadConfigurationRejectsDirectory(t *testing.T) {
	if _, err := loadConfigurationFromPath(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	override := ApplicationConfiguration{Snapshot: SnapshotConfiguration{MaxFiles: intPointer(7)}}
	merged := ApplicationConfiguration{}.Merge(override)
	*override.Snapshot.MaxFiles = 99
	if *merged.Snapshot.MaxFiles != 7 {
		t.Fatalf("expected merged value to be independent, got %d", *merged.Snapshot.MaxFiles)
	}
}

func TestParseDuration(t *testing.T) {
	testCases := []struct {
		name      string
		value     string
		fallback  time.Duration
		expected  time.Duration
		expectErr bool
	}{
		{name: "empty uses fallback", value: "", fallback: 30 * time.Second, expected: 30 * time.Second},
		{name: "explicit", value: "5m", fallback: time.Second, expected: 5 * time.Minute},
		{name: "invalid", value: "soon", expectErr: true},
		{name: "negative", value: "-1s", expectErr: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			actual, err := ParseDuration(testCase.value, testCase.fallback)
			if testCase.expectErr {
				if err == nil {
					t.Fatalf("expected error for %q", testCase.value)
				}
				return
			}
			if err != nil || actual != testCase.expected {
				t.Fatalf("expected %v, got %v (%v)", testCase.expected, actual, err)
			}
		})
	}
}
