package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default git config
	if cfg.Git.BranchPrefix != "tazz/" {
		t.Errorf("Git.BranchPrefix = %q, want %q", cfg.Git.BranchPrefix, "tazz/")
	}

	// Verify default tmux config
	if cfg.Tmux.Width != 220 {
		t.Errorf("Tmux.Width = %d, want 220", cfg.Tmux.Width)
	}
	if cfg.Tmux.Height != 50 {
		t.Errorf("Tmux.Height = %d, want 50", cfg.Tmux.Height)
	}
	if cfg.Tmux.HistoryLimit != 50000 {
		t.Errorf("Tmux.HistoryLimit = %d, want 50000", cfg.Tmux.HistoryLimit)
	}

	// Verify default cleanup config
	if !cfg.Cleanup.WarnOnStale {
		t.Error("Cleanup.WarnOnStale should be true by default")
	}
	if !cfg.Cleanup.KeepRemoteBranches {
		t.Error("Cleanup.KeepRemoteBranches should be true by default")
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}

	// Verify default paths config
	if cfg.Paths.WorktreeDir != "" {
		t.Errorf("Paths.WorktreeDir = %q, want empty", cfg.Paths.WorktreeDir)
	}
}

func TestPathsConfig_ResolveWorktreeDir(t *testing.T) {
	projectRoot := "/home/dev/myproject"

	t.Run("empty resolves to project root parent", func(t *testing.T) {
		p := PathsConfig{WorktreeDir: ""}
		got := p.ResolveWorktreeDir(projectRoot)
		want := "/home/dev"
		if got != want {
			t.Errorf("ResolveWorktreeDir() = %q, want %q", got, want)
		}
	})

	t.Run("absolute path used as-is", func(t *testing.T) {
		p := PathsConfig{WorktreeDir: "/fast/drive/worktrees"}
		got := p.ResolveWorktreeDir(projectRoot)
		want := "/fast/drive/worktrees"
		if got != want {
			t.Errorf("ResolveWorktreeDir() = %q, want %q", got, want)
		}
	})

	t.Run("relative path resolves against project root", func(t *testing.T) {
		p := PathsConfig{WorktreeDir: "checkouts"}
		got := p.ResolveWorktreeDir(projectRoot)
		want := filepath.Join(projectRoot, "checkouts")
		if got != want {
			t.Errorf("ResolveWorktreeDir() = %q, want %q", got, want)
		}
	})

	t.Run("tilde expands to home directory", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("cannot determine home directory: %v", err)
		}

		p := PathsConfig{WorktreeDir: "~/worktrees"}
		got := p.ResolveWorktreeDir(projectRoot)
		want := filepath.Join(home, "worktrees")
		if got != want {
			t.Errorf("ResolveWorktreeDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/tazz"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Unsetenv("XDG_CONFIG_HOME")
		result := ConfigDir()

		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("cannot determine home directory: %v", err)
		}
		expected := filepath.Join(home, ".config", "tazz")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	result := ConfigFile()

	if filepath.Base(result) != "config.yaml" {
		t.Errorf("ConfigFile() = %q, want basename config.yaml", result)
	}
	if filepath.Dir(result) != ConfigDir() {
		t.Errorf("ConfigFile() dir = %q, want %q", filepath.Dir(result), ConfigDir())
	}
}

func TestGet(t *testing.T) {
	// Get should never return nil, even without any config loaded
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	// Without a config file the values should match defaults
	if cfg.Git.BranchPrefix == "" {
		t.Error("Get() returned config with empty branch prefix")
	}
}
