package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const (
	autoCleanSettingsKey = "autoCleanSettings"
	currencySettingsKey  = "currencySettings"
)

// Settings persists the two singleton settings records. Reads degrade to
// hard-coded defaults when the slot is absent or unreadable; writes
// propagate failure.
type Settings struct {
	kv KV
}

// NewSettings creates a Settings store on top of kv
func NewSettings(kv KV) *Settings {
	return &Settings{kv: kv}
}

func readSettings[T any](kv KV, key string, def T) T {
	raw, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("Failed to read settings, using defaults", "key", key, "error", err)
		}
		return def
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("Corrupt settings, using defaults", "key", key, "error", err)
		return def
	}
	return out
}

func writeSettings[T any](kv KV, key string, settings T) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if err := kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// AutoClean returns the retention policy, defaulting to disabled/30 days
func (s *Settings) AutoClean() AutoCleanSettings {
	return readSettings(s.kv, autoCleanSettingsKey, AutoCleanSettings{Enabled: false, Days: 30})
}

// SaveAutoClean overwrites the retention policy slot
func (s *Settings) SaveAutoClean(settings AutoCleanSettings) error {
	return writeSettings(s.kv, autoCleanSettingsKey, settings)
}

// Currency returns the currency preference. The default is the name
// "USD" while saved values hold a symbol; callers display whatever is
// stored.
func (s *Settings) Currency() CurrencySettings {
	return readSettings(s.kv, currencySettingsKey, CurrencySettings{Currency: "USD"})
}

// SaveCurrency overwrites the currency preference slot
func (s *Settings) SaveCurrency(settings CurrencySettings) error {
	return writeSettings(s.kv, currencySettingsKey, settings)
}
