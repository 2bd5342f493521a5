package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/testfarm/broker/internal/data/pgxutil"
)

// ArtifactRepo stores artifact bundles as versioned chunked blobs.
//
// Every put creates a new version; prior versions are never touched here.
// Each physical chunk is stamped with the version's single upload timestamp
// so an external reaper can evict old chunks purely by age.
type ArtifactRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewArtifactRepo creates a new ArtifactRepo with the given database connection and configuration.
func NewArtifactRepo(db *sql.DB, cfg RepoConfig) *ArtifactRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &ArtifactRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// artifactChunkSize mirrors the usual GridFS chunk granularity.
const artifactChunkSize = 255 * 1024

// ArtifactFilename is the canonical blob name for a job's artifact bundle.
func ArtifactFilename(id string) string {
	return id + ".artifact"
}

// Put stores the stream as a new version of the job's artifact. The version
// row and all its chunks are written in one transaction and share one
// uploaded_at timestamp.
func (r *ArtifactRepo) Put(ctx context.Context, id string, src io.Reader) error {
	uploadedAt := r.timeProvider.Now().UTC()

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var versionID int64
			if scanErr := tx.QueryRow(ctx, `
				INSERT INTO artifact_versions (job_id, filename, uploaded_at)
				VALUES ($1, $2, $3)
				RETURNING id
			`, id, ArtifactFilename(id), uploadedAt).Scan(&versionID); scanErr != nil {
				return fmt.Errorf("insert artifact version: %w", scanErr)
			}

			buf := make([]byte, artifactChunkSize)
			for seq := 0; ; seq++ {
				n, readErr := io.ReadFull(src, buf)
				if n > 0 {
					if _, execErr := tx.Exec(ctx, `
						INSERT INTO artifact_chunks (version_id, seq, data, uploaded_at)
						VALUES ($1, $2, $3, $4)
					`, versionID, seq, buf[:n], uploadedAt); execErr != nil {
						return fmt.Errorf("insert artifact chunk %d: %w", seq, execErr)
					}
				}
				if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
					return nil
				}
				if readErr != nil {
					return fmt.Errorf("read artifact stream: %w", readErr)
				}
			}
		},
	})
	if err != nil {
		return err
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "artifact stored", "job_id", id, "uploaded_at", uploadedAt)
	}
	return nil
}

// Get streams the most recently uploaded version of the job's artifact to w.
func (r *ArtifactRepo) Get(ctx context.Context, id string, w io.Writer) error {
	var versionID int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id FROM artifact_versions
		WHERE job_id = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1
	`, id).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoArtifact
	}
	if err != nil {
		return fmt.Errorf("find artifact version: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT data FROM artifact_chunks
		WHERE version_id = $1
		ORDER BY seq ASC
	`, versionID)
	if err != nil {
		return fmt.Errorf("read artifact chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk []byte
		if scanErr := rows.Scan(&chunk); scanErr != nil {
			return fmt.Errorf("scan artifact chunk: %w", scanErr)
		}
		if _, writeErr := w.Write(chunk); writeErr != nil {
			return fmt.Errorf("write artifact chunk: %w", writeErr)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return fmt.Errorf("iterate artifact chunks: %w", rowsErr)
	}
	return nil
}
