package clips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates a requested lifecycle edge that does not exist.
var ErrInvalidTransition = errors.New("invalid status transition")

// AdvanceFrom moves a clip forward one lifecycle edge with a conditional
// update keyed on the clip's current status. Zero rows affected means another
// invocation already moved the clip; that is reported as a non-advanced
// result, not an error, so duplicate stage execution stays idempotent.
// Status, artifact paths, viral score, and updated_at land in one statement.
func (s *Store) AdvanceFrom(ctx context.Context, clip *Clip, to Status) (TransitionResult, error) {
	if clip == nil {
		return TransitionResult{}, errors.New("advance: nil clip")
	}
	from := clip.Status
	if to == StatusFailed {
		return TransitionResult{}, fmt.Errorf("%w: use FailFrom for %s -> %s", ErrInvalidTransition, from, to)
	}
	if !CanTransition(from, to) {
		return TransitionResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return s.transition(ctx, clip, from, to, "")
}

// FailFrom moves a clip sideways into FAILED with a machine-readable reason.
// Terminal clips are rejected; a stale status guard is a no-op like AdvanceFrom.
func (s *Store) FailFrom(ctx context.Context, clip *Clip, reason string) (TransitionResult, error) {
	if clip == nil {
		return TransitionResult{}, errors.New("fail: nil clip")
	}
	from := clip.Status
	if from.IsTerminal() {
		return TransitionResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StatusFailed)
	}
	return s.transition(ctx, clip, from, StatusFailed, reason)
}

func (s *Store) transition(ctx context.Context, clip *Clip, from, to Status, reason string) (TransitionResult, error) {
	now := time.Now().UTC()

	pathsJSON, err := json.Marshal(clip.Paths)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("marshal paths: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE clips SET
            status = ?, fail_reason = ?, viral_score = ?, paths_json = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(to),
		nullableString(reason),
		nullableInt(clip.ViralScore),
		string(pathsJSON),
		now.Format(time.RFC3339Nano),
		clip.ID,
		string(from),
	)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("transition clip %d: %w", clip.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return TransitionResult{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return TransitionResult{Advanced: false, From: from, To: to}, nil
	}

	clip.Status = to
	clip.FailReason = reason
	clip.UpdatedAt = now
	return TransitionResult{Advanced: true, From: from, To: to}, nil
}

// RetryFailed resets failed clips to DISCOVERED so the next run reprocesses
// them from scratch, clearing the failure reason and any recorded score.
// With no ids every failed clip is reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := `UPDATE clips SET status = ?, fail_reason = NULL, viral_score = NULL, updated_at = ? WHERE status = ?`
	args := []any{string(StatusDiscovered), now, string(StatusFailed)}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed clips: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// ClearTerminal deletes packaged and failed clips, returning the count removed.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM clips WHERE status IN (?, ?)`,
		string(StatusPackaged),
		string(StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal clips: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Clear deletes every clip row. Profiles, creators, and cursors survive.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM clips`)
	if err != nil {
		return 0, fmt.Errorf("clear clips: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
