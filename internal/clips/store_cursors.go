package clips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCursor returns the discovery cursor for a creator, or nil when the
// creator has never been fetched.
func (s *Store) GetCursor(ctx context.Context, creatorID int64) (*Cursor, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT creator_id, last_fetched_at, platform_cursor, updated_at FROM cursors WHERE creator_id = ?`,
		creatorID,
	)

	var (
		cursor         Cursor
		platformCursor sql.NullString
		lastFetchedAt  string
		updatedAt      string
	)
	err := row.Scan(&cursor.CreatorID, &lastFetchedAt, &platformCursor, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor: %w", err)
	}

	cursor.PlatformCursor = platformCursor.String
	if cursor.LastFetchedAt, err = parseTimeString(lastFetchedAt); err != nil {
		return nil, fmt.Errorf("parse last_fetched_at: %w", err)
	}
	if cursor.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse cursor updated_at: %w", err)
	}
	return &cursor, nil
}

// AdvanceCursor moves a creator's cursor to the newest observed clip
// timestamp. The cursor only ever moves forward; a fetchedAt at or before the
// stored watermark is a no-op so interleaved or replayed batches cannot
// regress discovery. Returns whether the cursor actually advanced.
func (s *Store) AdvanceCursor(ctx context.Context, creatorID int64, fetchedAt time.Time, platformCursor string) (bool, error) {
	if fetchedAt.IsZero() {
		return false, nil
	}
	existing, err := s.GetCursor(ctx, creatorID)
	if err != nil {
		return false, err
	}
	if existing != nil && !fetchedAt.After(existing.LastFetchedAt) {
		return false, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = retryOnBusy(ensureContext(ctx), func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO cursors (creator_id, last_fetched_at, platform_cursor, updated_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (creator_id) DO UPDATE SET
                 last_fetched_at = excluded.last_fetched_at,
                 platform_cursor = excluded.platform_cursor,
                 updated_at = excluded.updated_at`,
			creatorID,
			fetchedAt.UTC().Format(time.RFC3339Nano),
			nullableString(platformCursor),
			now,
		)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("advance cursor: %w", err)
	}
	return true, nil
}
