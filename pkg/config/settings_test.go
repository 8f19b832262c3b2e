package config

import (
	"path/filepath"
	"testing"
)

func TestSettings_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	dev := "hw:1,0"
	want := Settings{HistoryS: 45, FastRateS: 6, AudioDeviceID: &dev}

	if err := SaveSettings(path, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.HistoryS != want.HistoryS || got.FastRateS != want.FastRateS {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.AudioDeviceID == nil || *got.AudioDeviceID != dev {
		t.Errorf("expected AudioDeviceID %q, got %v", dev, got.AudioDeviceID)
	}
}

func TestLoadSettings_MissingFileReturnsZeroValue(t *testing.T) {
	got, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if got != (Settings{}) {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestSettings_ApplyClampsOntoConfig(t *testing.T) {
	s := Settings{HistoryS: 5, FastRateS: 30}
	got := s.Apply(DefaultConfig())
	if got.FastRateS != 5 {
		t.Errorf("expected Apply to clamp FastRateS to 5, got %v", got.FastRateS)
	}
}
