package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the subset of Config the UI persists across restarts
// (spec.md §6): the rate/history pair and the chosen audio device. Everything
// else is either environment-sourced or purely runtime state.
type Settings struct {
	HistoryS      float64 `yaml:"history_s"`
	FastRateS     float64 `yaml:"fast_rate_s"`
	AudioDeviceID *string `yaml:"audio_device_id,omitempty"`
}

func SettingsFromConfig(c Config) Settings {
	return Settings{
		HistoryS:      c.HistoryS,
		FastRateS:     c.FastRateS,
		AudioDeviceID: c.AudioDeviceID,
	}
}

// Apply overlays s onto c and returns a clamped copy.
func (s Settings) Apply(c Config) Config {
	c.HistoryS = s.HistoryS
	c.FastRateS = s.FastRateS
	c.AudioDeviceID = s.AudioDeviceID
	return c.Clamped()
}

// LoadSettings reads a YAML settings file. A missing file is not an error;
// the caller gets back the zero value and should fall back to defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// SaveSettings writes s to path as YAML, creating or truncating it.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
