package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AISettingsStore = (*SettingsStore)(nil)

// providerSecrets is the encrypted part of a provider row
type providerSecrets struct {
	APIKey string `json:"api_key"`
}

// SettingsStore implements driven.AISettingsStore using PostgreSQL.
// Provider API keys are stored encrypted in secret_blob.
type SettingsStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB, encryptor *SecretEncryptor) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetAISettings retrieves AI settings for a team
func (s *SettingsStore) GetAISettings(ctx context.Context, teamID string) (*domain.AISettings, error) {
	query := `
		SELECT team_id, enabled, streaming_enabled, ui_visible, default_text_provider,
			   default_image_provider, allow_fallback, requests_per_minute, updated_at, updated_by
		FROM ai_settings
		WHERE team_id = $1
	`

	var settings domain.AISettings
	var textProvider, imageProvider string
	var updatedBy sql.NullString

	err := s.db.QueryRowContext(ctx, query, teamID).Scan(
		&settings.TeamID,
		&settings.Enabled,
		&settings.StreamingEnabled,
		&settings.UIVisible,
		&textProvider,
		&imageProvider,
		&settings.AllowFallback,
		&settings.RequestsPerMinute,
		&settings.UpdatedAt,
		&updatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ai settings: %w", err)
	}

	settings.DefaultTextProvider = domain.ProviderID(textProvider)
	settings.DefaultImageProvider = domain.ProviderID(imageProvider)
	settings.UpdatedBy = updatedBy.String

	providers, err := s.getProviders(ctx, teamID)
	if err != nil {
		return nil, err
	}
	settings.Providers = providers

	return &settings, nil
}

func (s *SettingsStore) getProviders(ctx context.Context, teamID string) ([]domain.ProviderSettings, error) {
	query := `
		SELECT provider, model, image_model, base_url, secret_blob
		FROM ai_provider_settings
		WHERE team_id = $1
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list provider settings: %w", err)
	}
	defer rows.Close()

	var providers []domain.ProviderSettings
	for rows.Next() {
		var p domain.ProviderSettings
		var provider string
		var secretBlob []byte

		if err := rows.Scan(&provider, &p.Model, &p.ImageModel, &p.BaseURL, &secretBlob); err != nil {
			return nil, fmt.Errorf("scan provider settings: %w", err)
		}
		p.Provider = domain.ProviderID(provider)

		if len(secretBlob) > 0 {
			var secrets providerSecrets
			if err := s.encryptor.Decrypt(secretBlob, secretScope(teamID, provider), &secrets); err != nil {
				return nil, fmt.Errorf("decrypt %s secrets: %w", provider, err)
			}
			p.APIKey = secrets.APIKey
		}

		providers = append(providers, p)
	}

	return providers, rows.Err()
}

// SaveAISettings persists AI settings and replaces the team's provider rows
func (s *SettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	blobs := make([][]byte, len(settings.Providers))
	for i, p := range settings.Providers {
		if p.APIKey == "" {
			continue
		}
		blob, err := s.encryptor.Encrypt(providerSecrets{APIKey: p.APIKey}, secretScope(settings.TeamID, string(p.Provider)))
		if err != nil {
			return fmt.Errorf("encrypt %s secrets: %w", p.Provider, err)
		}
		blobs[i] = blob
	}

	settings.UpdatedAt = time.Now()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO ai_settings (team_id, enabled, streaming_enabled, ui_visible, default_text_provider,
									 default_image_provider, allow_fallback, requests_per_minute, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (team_id) DO UPDATE SET
				enabled = EXCLUDED.enabled,
				streaming_enabled = EXCLUDED.streaming_enabled,
				ui_visible = EXCLUDED.ui_visible,
				default_text_provider = EXCLUDED.default_text_provider,
				default_image_provider = EXCLUDED.default_image_provider,
				allow_fallback = EXCLUDED.allow_fallback,
				requests_per_minute = EXCLUDED.requests_per_minute,
				updated_at = EXCLUDED.updated_at,
				updated_by = EXCLUDED.updated_by
		`

		_, err := tx.ExecContext(ctx, query,
			settings.TeamID,
			settings.Enabled,
			settings.StreamingEnabled,
			settings.UIVisible,
			string(settings.DefaultTextProvider),
			string(settings.DefaultImageProvider),
			settings.AllowFallback,
			settings.RequestsPerMinute,
			settings.UpdatedAt,
			nullString(settings.UpdatedBy),
		)
		if err != nil {
			return fmt.Errorf("save ai settings: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM ai_provider_settings WHERE team_id = $1`, settings.TeamID); err != nil {
			return fmt.Errorf("clear provider settings: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ai_provider_settings (team_id, provider, model, image_model, base_url, secret_blob, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range settings.Providers {
			_, err := stmt.ExecContext(ctx,
				settings.TeamID,
				string(p.Provider),
				p.Model,
				p.ImageModel,
				p.BaseURL,
				blobs[i],
				i,
			)
			if err != nil {
				return fmt.Errorf("save %s settings: %w", p.Provider, err)
			}
		}

		return nil
	})
}
