package clips

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const clipColumns = `id, platform, clip_key, creator_id, profile_id, status,
    viral_score, fail_reason, metadata_json, paths_json, created_at, updated_at`

// InsertDiscovered records a newly discovered clip. Clips already known by
// (platform, clip_key) are silently skipped so repeated discovery runs stay
// idempotent; the returned flag reports whether a row was actually created.
func (s *Store) InsertDiscovered(ctx context.Context, clip *Clip) (bool, error) {
	if clip == nil {
		return false, errors.New("insert discovered: nil clip")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	metadataJSON, err := json.Marshal(clip.Metadata)
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}
	pathsJSON, err := json.Marshal(clip.Paths)
	if err != nil {
		return false, fmt.Errorf("marshal paths: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO clips (
            platform, clip_key, creator_id, profile_id, status,
            viral_score, fail_reason, metadata_json, paths_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.Platform,
		clip.ClipKey,
		clip.CreatorID,
		clip.ProfileID,
		string(StatusDiscovered),
		nullableInt(clip.ViralScore),
		nullableString(clip.FailReason),
		string(metadataJSON),
		string(pathsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert clip: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	clip.ID = id
	clip.Status = StatusDiscovered
	clip.CreatedAt = now
	clip.UpdatedAt = now
	return true, nil
}

// GetByID fetches a clip by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Clip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// GetByKey fetches a clip by its platform-qualified identity.
func (s *Store) GetByKey(ctx context.Context, platform, clipKey string) (*Clip, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+clipColumns+` FROM clips WHERE platform = ? AND clip_key = ?`,
		platform,
		clipKey,
	)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip by key: %w", err)
	}
	return clip, nil
}

// Update persists mutable clip fields outside of a status transition.
// The status column is deliberately untouched; use AdvanceFrom/FailFrom.
func (s *Store) Update(ctx context.Context, clip *Clip) error {
	if clip == nil {
		return errors.New("update: nil clip")
	}
	now := time.Now().UTC()

	metadataJSON, err := json.Marshal(clip.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	pathsJSON, err := json.Marshal(clip.Paths)
	if err != nil {
		return fmt.Errorf("marshal paths: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE clips SET
            viral_score = ?, fail_reason = ?, metadata_json = ?, paths_json = ?, updated_at = ?
        WHERE id = ?`,
		nullableInt(clip.ViralScore),
		nullableString(clip.FailReason),
		string(metadataJSON),
		string(pathsJSON),
		now.Format(time.RFC3339Nano),
		clip.ID,
	)
	if err != nil {
		return fmt.Errorf("update clip: %w", err)
	}
	clip.UpdatedAt = now
	return nil
}

// ListByStatus returns every clip in the given statuses ordered by row id.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Clip, error) {
	if len(statuses) == 0 {
		return s.List(ctx)
	}
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	query := `SELECT ` + clipColumns + ` FROM clips WHERE status IN (` + makePlaceholders(len(statuses)) + `) ORDER BY id`
	return s.queryClips(ctx, query, args...)
}

// ListForProfile returns clips for a profile, optionally filtered by status.
func (s *Store) ListForProfile(ctx context.Context, profileID int64, statuses ...Status) ([]*Clip, error) {
	if len(statuses) == 0 {
		return s.queryClips(ctx, `SELECT `+clipColumns+` FROM clips WHERE profile_id = ? ORDER BY id`, profileID)
	}
	args := make([]any, 0, len(statuses)+1)
	args = append(args, profileID)
	for _, status := range statuses {
		args = append(args, string(status))
	}
	query := `SELECT ` + clipColumns + ` FROM clips WHERE profile_id = ? AND status IN (` +
		makePlaceholders(len(statuses)) + `) ORDER BY id`
	return s.queryClips(ctx, query, args...)
}

// List returns every clip ordered by row id.
func (s *Store) List(ctx context.Context) ([]*Clip, error) {
	return s.queryClips(ctx, `SELECT `+clipColumns+` FROM clips ORDER BY id`)
}

func (s *Store) queryClips(ctx context.Context, query string, args ...any) ([]*Clip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return clips, nil
}

// Stats returns per-status clip counts for a profile; a zero profile id
// aggregates across all profiles.
func (s *Store) Stats(ctx context.Context, profileID int64) (map[Status]int, error) {
	query := `SELECT status, COUNT(1) FROM clips GROUP BY status`
	args := []any{}
	if profileID > 0 {
		query = `SELECT status, COUNT(1) FROM clips WHERE profile_id = ? GROUP BY status`
		args = append(args, profileID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		status, err := ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func scanClip(scanner interface{ Scan(dest ...any) error }) (*Clip, error) {
	var (
		clip         Clip
		rawStatus    string
		viralScore   sql.NullInt64
		failReason   sql.NullString
		metadataJSON sql.NullString
		pathsJSON    sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := scanner.Scan(
		&clip.ID,
		&clip.Platform,
		&clip.ClipKey,
		&clip.CreatorID,
		&clip.ProfileID,
		&rawStatus,
		&viralScore,
		&failReason,
		&metadataJSON,
		&pathsJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	clip.Status = status

	if viralScore.Valid {
		score := int(viralScore.Int64)
		clip.ViralScore = &score
	}
	clip.FailReason = failReason.String

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &clip.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if pathsJSON.Valid && pathsJSON.String != "" {
		if err := json.Unmarshal([]byte(pathsJSON.String), &clip.Paths); err != nil {
			return nil, fmt.Errorf("unmarshal paths: %w", err)
		}
	}

	if clip.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if clip.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &clip, nil
}
