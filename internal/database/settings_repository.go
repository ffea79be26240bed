package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SettingAutoPublish is the key for the global auto-publish switch.
const SettingAutoPublish = "auto_publish_enabled"

// SettingsRepository reads process-wide settings from the datastore.
// Values are read fresh on every call, never cached, so a change takes
// effect on the very next run.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetBool returns the boolean value of a setting. A missing key is false.
func (r *SettingsRepository) GetBool(ctx context.Context, key string) (bool, error) {
	var value string
	scanErr := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = $1`, key,
	).Scan(&value)

	if errors.Is(scanErr, sql.ErrNoRows) {
		return false, nil
	}
	if scanErr != nil {
		return false, fmt.Errorf("read setting %s: %w", key, scanErr)
	}

	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "1" || value == "yes", nil
}

// SetBool stores a boolean setting.
func (r *SettingsRepository) SetBool(ctx context.Context, key string, value bool) error {
	_, execErr := r.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, fmt.Sprintf("%t", value))
	if execErr != nil {
		return fmt.Errorf("write setting %s: %w", key, execErr)
	}

	return nil
}
