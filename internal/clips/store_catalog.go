package clips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertProfile creates or updates a profile keyed by slug.
func (s *Store) UpsertProfile(ctx context.Context, slug, name, rulesJSON string) (*Profile, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ensureContext(ctx), func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO profiles (slug, name, rules_json, created_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (slug) DO UPDATE SET
                 name = excluded.name,
                 rules_json = excluded.rules_json`,
			slug,
			name,
			rulesJSON,
			now,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfileBySlug(ctx, slug)
}

// GetProfileBySlug fetches a profile by slug, nil when absent.
func (s *Store) GetProfileBySlug(ctx context.Context, slug string) (*Profile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, slug, name, rules_json, created_at FROM profiles WHERE slug = ?`,
		slug,
	)
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// ListProfiles returns every profile ordered by slug.
func (s *Store) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name, rules_json, created_at FROM profiles ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// UpsertCreator creates or updates a creator keyed by platform identity.
func (s *Store) UpsertCreator(ctx context.Context, creator *Creator) (*Creator, error) {
	if creator == nil {
		return nil, errors.New("upsert creator: nil creator")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ensureContext(ctx), func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO creators (platform, platform_user_id, display_name, channel_url, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (platform, platform_user_id) DO UPDATE SET
                 display_name = excluded.display_name,
                 channel_url = excluded.channel_url`,
			creator.Platform,
			creator.PlatformUserID,
			creator.DisplayName,
			nullableString(creator.ChannelURL),
			now,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert creator: %w", err)
	}
	return s.GetCreator(ctx, creator.Platform, creator.PlatformUserID)
}

// GetCreator fetches a creator by platform identity, nil when absent.
func (s *Store) GetCreator(ctx context.Context, platform, platformUserID string) (*Creator, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, platform, platform_user_id, display_name, channel_url, created_at
         FROM creators WHERE platform = ? AND platform_user_id = ?`,
		platform,
		platformUserID,
	)
	creator, err := scanCreator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get creator: %w", err)
	}
	return creator, nil
}

// GetCreatorByID fetches a creator by row identifier, nil when absent.
func (s *Store) GetCreatorByID(ctx context.Context, id int64) (*Creator, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, platform, platform_user_id, display_name, channel_url, created_at
         FROM creators WHERE id = ?`,
		id,
	)
	creator, err := scanCreator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get creator: %w", err)
	}
	return creator, nil
}

// LinkCreator attaches a creator to a profile, updating the enabled flag on
// repeat calls.
func (s *Store) LinkCreator(ctx context.Context, profileID, creatorID int64, enabled bool) error {
	flag := 0
	if enabled {
		flag = 1
	}
	err := retryOnBusy(ensureContext(ctx), func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO profile_creators (profile_id, creator_id, is_enabled)
             VALUES (?, ?, ?)
             ON CONFLICT (profile_id, creator_id) DO UPDATE SET is_enabled = excluded.is_enabled`,
			profileID,
			creatorID,
			flag,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("link creator: %w", err)
	}
	return nil
}

// EnabledCreators returns the creators linked to a profile with discovery
// enabled, ordered by display name.
func (s *Store) EnabledCreators(ctx context.Context, profileID int64) ([]*Creator, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT c.id, c.platform, c.platform_user_id, c.display_name, c.channel_url, c.created_at
         FROM creators c
         JOIN profile_creators pc ON pc.creator_id = c.id
         WHERE pc.profile_id = ? AND pc.is_enabled = 1
         ORDER BY c.display_name`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("query enabled creators: %w", err)
	}
	defer rows.Close()

	var creators []*Creator
	for rows.Next() {
		creator, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creator: %w", err)
		}
		creators = append(creators, creator)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creators: %w", err)
	}
	return creators, nil
}

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*Profile, error) {
	var (
		profile   Profile
		createdAt string
	)
	if err := scanner.Scan(&profile.ID, &profile.Slug, &profile.Name, &profile.RulesJSON, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if profile.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse profile created_at: %w", err)
	}
	return &profile, nil
}

func scanCreator(scanner interface{ Scan(dest ...any) error }) (*Creator, error) {
	var (
		creator    Creator
		channelURL sql.NullString
		createdAt  string
	)
	if err := scanner.Scan(
		&creator.ID,
		&creator.Platform,
		&creator.PlatformUserID,
		&creator.DisplayName,
		&channelURL,
		&createdAt,
	); err != nil {
		return nil, err
	}
	creator.ChannelURL = channelURL.String
	var err error
	if creator.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse creator created_at: %w", err)
	}
	return &creator, nil
}
