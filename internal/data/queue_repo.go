package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// QueueRepo holds the queue metadata agents advertise: descriptions for
// discoverability and known provisioning images per queue.
type QueueRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewQueueRepo creates a new QueueRepo with the given database connection and configuration.
func NewQueueRepo(db *sql.DB, cfg RepoConfig) *QueueRepo {
	return &QueueRepo{DB: db, logger: cfg.Logger}
}

// Advertise upserts queue name -> description pairs.
func (r *QueueRepo) Advertise(ctx context.Context, queues map[string]string) error {
	for name, description := range queues {
		if _, err := r.DB.ExecContext(ctx, `
			INSERT INTO queues (name, description)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		`, name, description); err != nil {
			return fmt.Errorf("advertise queue %s: %w", name, err)
		}
	}
	return nil
}

// List returns all advertised queues as a name -> description map.
func (r *QueueRepo) List(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name, description FROM queues`)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	queues := map[string]string{}
	for rows.Next() {
		var name, description string
		if scanErr := rows.Scan(&name, &description); scanErr != nil {
			return nil, fmt.Errorf("scan queue: %w", scanErr)
		}
		queues[name] = description
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate queues: %w", rowsErr)
	}
	return queues, nil
}

// SetImages replaces the known image map for a queue.
func (r *QueueRepo) SetImages(ctx context.Context, queue string, images map[string]string) error {
	doc, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("marshal queue images: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO queues (name, description, images)
		VALUES ($1, '', $2::jsonb)
		ON CONFLICT (name) DO UPDATE SET images = EXCLUDED.images
	`, queue, doc); err != nil {
		return fmt.Errorf("set queue images: %w", err)
	}
	return nil
}

// Images returns the known image map for a queue. Unknown queues yield an
// empty map rather than an error.
func (r *QueueRepo) Images(ctx context.Context, queue string) (map[string]string, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT images FROM queues WHERE name = $1
	`, queue).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue images: %w", err)
	}

	images := map[string]string{}
	if len(raw) > 0 {
		if unmarshalErr := json.Unmarshal(raw, &images); unmarshalErr != nil {
			return nil, fmt.Errorf("decode queue images: %w", unmarshalErr)
		}
	}
	return images, nil
}
