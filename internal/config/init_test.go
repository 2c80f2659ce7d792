package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitializeConfigurationCreatesLocalFile(t *testing.T) {
	workingDirectory := t.TempDir()
	path, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	expectedPath := filepath.Join(workingDirectory, "config.yaml")
	if path != expectedPath {
		t.Fatalf("expected path %s, got %s", expectedPath, path)
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read config: %v", readErr)
	}
	for _, section := range []string{"snapshot:", "generate:", "serve:"} {
		if !strings.Contains(string(content), section) {
			t.Fatalf("expected %s in configuration: %s", section, string(content))
		}
	}
}

func TestInitializeConfigurationHonorsGlobalTarget(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	path, err := InitializeConfiguration(InitOptions{Target: InitTargetGlobal, Force: true})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	if !strings.HasPrefix(path, homeDir) {
		t.Fatalf("expected configuration under home dir, got %s", path)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected file to exist at %s: %v", path, statErr)
	}
}

func TestInitializeConfigurationOverwriteRules(t *testing.T) {
	testCases := []struct {
		name      string
		force     bool
		expectErr bool
	}{
		{name: "refuses without force", force: false, expectErr: true},
		{name: "replaces with force", force: true, expectErr: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			workingDirectory := t.TempDir()
			path := filepath.Join(workingDirectory, "config.yaml")
			if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
				t.Fatalf("write seed config: %v", err)
			}
			_, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal, Force: testCase.force})
			if (err != nil) != testCase.expectErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			content, _ := os.ReadFile(path)
			if testCase.force && string(content) != DefaultTemplate() {
				t.Fatalf("expected template to replace existing file")
			}
			if !testCase.force && string(content) != "existing" {
				t.Fatalf("expected existing file to be preserved")
			}
		})
	}
}

func TestInitializeConfigurationRejectsUnknownTarget(t *testing.T) {
	if _, err := InitializeConfiguration(InitOptions{Target: "elsewhere"}); err == nil {
		t.Fatalf("expected error for unknown target")
	}
}
