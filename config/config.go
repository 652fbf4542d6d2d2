// Package config loads and saves the FluxVoice application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

type AzureConfig struct {
	SpeechKey        string `yaml:"speech_key"`
	SpeechRegion     string `yaml:"speech_region"`
	OpenAIEndpoint   string `yaml:"openai_endpoint"`
	OpenAIKey        string `yaml:"openai_key"`
	OpenAIDeployment string `yaml:"openai_deployment"`
}

type HotkeyConfig struct {
	Modifier1 string `yaml:"modifier1"`
	Modifier2 string `yaml:"modifier2"`
	Key       string `yaml:"key"`
}

type LanguageConfig struct {
	SpeechLanguages []string `yaml:"speech_languages"`
}

type FeatureConfig struct {
	TextPolishingEnabled bool `yaml:"text_polishing_enabled"`
	AutoInsertEnabled    bool `yaml:"auto_insert_enabled"`
}

// UIConfig persists window placement so the session window reopens
// where the user left it.
type UIConfig struct {
	PositionX int     `yaml:"position_x"`
	PositionY int     `yaml:"position_y"`
	Opacity   float64 `yaml:"opacity"`
	Theme     string  `yaml:"theme"`
}

type AppConfig struct {
	Azure    AzureConfig    `yaml:"azure"`
	Hotkey   HotkeyConfig   `yaml:"hotkey"`
	Language LanguageConfig `yaml:"language"`
	Features FeatureConfig  `yaml:"features"`
	UI       UIConfig       `yaml:"ui"`
}

func Default() AppConfig {
	return AppConfig{
		Azure: AzureConfig{
			SpeechRegion:     "eastus",
			OpenAIDeployment: "gpt-4",
		},
		Hotkey: HotkeyConfig{
			Modifier1: "ctrl",
			Modifier2: "shift",
			Key:       "z",
		},
		Language: LanguageConfig{
			SpeechLanguages: []string{"en-US"},
		},
		Features: FeatureConfig{
			TextPolishingEnabled: true,
			AutoInsertEnabled:    true,
		},
		UI: UIConfig{
			Opacity: 0.9,
			Theme:   "light",
		},
	}
}

// DefaultDir returns the OS-specific data directory for config and stores.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "fluxvoice"), nil
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "fluxvoice"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "fluxvoice"), nil
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "fluxvoice"), nil
}

// Load reads config.yaml from dir, writing defaults on first run.
// Environment variables override stored Azure credentials.
func Load(dir string) (AppConfig, error) {
	cfg := Default()
	path := filepath.Join(dir, "config.yaml")

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if saveErr := Save(dir, cfg); saveErr != nil {
			return cfg, fmt.Errorf("write default config: %w", saveErr)
		}
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(cfg.Language.SpeechLanguages) == 0 {
		cfg.Language.SpeechLanguages = []string{"en-US"}
	}

	if v := os.Getenv("AZURE_SPEECH_KEY"); v != "" {
		cfg.Azure.SpeechKey = v
	}
	if v := os.Getenv("AZURE_SPEECH_REGION"); v != "" {
		cfg.Azure.SpeechRegion = v
	}
	if v := os.Getenv("AZURE_OPENAI_KEY"); v != "" {
		cfg.Azure.OpenAIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Azure.OpenAIEndpoint = v
	}

	return cfg, nil
}

func Save(dir string, cfg AppConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

// SaveWindowPosition persists the last window placement. Best-effort:
// it is called during shutdown and its failure must not block exit.
func SaveWindowPosition(dir string, cfg AppConfig, x, y int) error {
	cfg.UI.PositionX = x
	cfg.UI.PositionY = y
	return Save(dir, cfg)
}
