package webhook

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/quantitva/market-intel/errors"
)

// Store persists webhook configurations. Unlike schedules, deletion is
// hard: a removed endpoint has no history worth keeping.
type Store struct {
	db *sql.DB
}

// NewStore creates a webhook store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a webhook config, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, cfg *Config) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	query := `
		INSERT INTO webhooks (id, name, url, type, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, cfg.URL, cfg.Type, cfg.Description, cfg.Active,
		cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert webhook")
	}
	return nil
}

// Get retrieves a webhook by id.
func (s *Store) Get(ctx context.Context, id string) (*Config, error) {
	query := selectWebhookColumns + ` WHERE id = ?`
	cfg, err := scanWebhook(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "webhook %s", id)
		}
		return nil, errors.Wrap(err, "failed to get webhook")
	}
	return cfg, nil
}

// List returns all webhooks, oldest first.
func (s *Store) List(ctx context.Context) ([]*Config, error) {
	return s.query(ctx, selectWebhookColumns+` ORDER BY created_at ASC`)
}

// ListActiveByType returns active webhooks of one type, oldest first.
func (s *Store) ListActiveByType(ctx context.Context, webhookType string) ([]*Config, error) {
	query := selectWebhookColumns + ` WHERE active = 1 AND type = ? ORDER BY created_at ASC`
	return s.query(ctx, query, webhookType)
}

// Update rewrites a webhook's mutable fields.
func (s *Store) Update(ctx context.Context, cfg *Config) error {
	cfg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	query := `
		UPDATE webhooks
		SET name = ?, url = ?, type = ?, description = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		cfg.Name, cfg.URL, cfg.Type, cfg.Description, cfg.Active, cfg.UpdatedAt, cfg.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update webhook")
	}
	return checkAffected(result, cfg.ID)
}

// Delete removes a webhook permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete webhook")
	}
	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "webhook %s", id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Config, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list webhooks")
	}
	defer rows.Close()

	var configs []*Config
	for rows.Next() {
		cfg, err := scanWebhook(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan webhook")
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate webhooks")
	}
	return configs, nil
}

const selectWebhookColumns = `
	SELECT id, name, url, type, description, active, created_at, updated_at
	FROM webhooks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhook(row rowScanner) (*Config, error) {
	var cfg Config
	var description sql.NullString
	err := row.Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.URL,
		&cfg.Type,
		&description,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.Description = description.String
	return &cfg, nil
}
