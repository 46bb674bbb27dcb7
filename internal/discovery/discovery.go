// Package discovery finds new clips for the creators tracked by a profile.
//
// Each source platform contributes a Client adapter that fetches recently
// created clips for one creator. The Service walks a profile's enabled
// creators, asks the matching adapter for clips newer than the creator's
// stored cursor, filters candidates against the profile rules, and records
// survivors as DISCOVERED rows. Insertion is idempotent: the clip table's
// platform+key uniqueness swallows replays, and the cursor only ever moves
// forward, so re-running discovery is always safe.
package discovery

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/tidwall/sjson"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

// defaultCreatorDelay paces platform API usage between consecutive creators.
const defaultCreatorDelay = 1500 * time.Millisecond

// Platform names used to key adapters and tag clip rows.
const (
	PlatformTwitch = "twitch"
	PlatformKick   = "kick"
)

// Candidate is one clip a platform adapter surfaced for consideration.
type Candidate struct {
	// ClipKey is the platform-scoped clip identifier.
	ClipKey string
	// Platform names the source platform ("twitch", "kick").
	Platform string
	// CreatedAt is the platform's creation timestamp. Zero when the
	// platform omitted or mangled it; zero-time candidates are kept.
	CreatedAt time.Time
	// Metadata is the normalized payload stored with the clip row.
	Metadata clips.ClipMetadata
}

// Client fetches recently created clips for a single creator.
//
// Implementations return only candidates created strictly after since,
// applying their configured lookback window when since is zero. They bound
// their own pagination; callers bound the per-creator candidate count.
type Client interface {
	FetchRecentClips(ctx context.Context, creator *clips.Creator, since time.Time) ([]Candidate, error)
}

// Summary reports what one discovery pass did.
type Summary struct {
	CreatorsScanned int
	Candidates      int
	Inserted        int
	Duplicates      int
	Filtered        int
	Failures        int
}

// Service coordinates discovery across a profile's creators.
type Service struct {
	store        *clips.Store
	clients      map[string]Client
	logger       *slog.Logger
	creatorDelay time.Duration
}

// NewService builds a discovery service over the given platform adapters,
// keyed by platform name.
func NewService(store *clips.Store, clients map[string]Client, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		clients:      clients,
		logger:       logging.NewComponentLogger(logger, "discovery"),
		creatorDelay: defaultCreatorDelay,
	}
}

// SetCreatorDelay overrides the politeness pause between creators.
func (s *Service) SetCreatorDelay(delay time.Duration) {
	if delay >= 0 {
		s.creatorDelay = delay
	}
}

// DiscoverProfile fetches new clips for every enabled creator in the profile
// and inserts them as DISCOVERED rows.
//
// A failing creator is logged and skipped so one broken channel cannot stall
// the rest of the pass; only store errors and context cancellation abort.
// maxPerCreator bounds how many candidates each creator may contribute; a
// non-positive value falls back to the profile rule.
func (s *Service) DiscoverProfile(ctx context.Context, profile *clips.Profile, rules profiles.Rules, maxPerCreator int) (Summary, error) {
	summary := Summary{}
	if maxPerCreator <= 0 {
		maxPerCreator = rules.MaxClipsPerCreatorPerRun
	}

	creators, err := s.store.EnabledCreators(ctx, profile.ID)
	if err != nil {
		return summary, err
	}
	if len(creators) == 0 {
		s.logger.Warn("no enabled creators for profile",
			logging.String(logging.FieldProfile, profile.Slug))
		return summary, nil
	}

	for i, creator := range creators {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && s.creatorDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(s.creatorDelay):
			}
		}

		client, ok := s.clients[creator.Platform]
		if !ok {
			s.logger.Warn("no discovery client for platform",
				logging.String(logging.FieldPlatform, creator.Platform),
				logging.String(logging.FieldCreator, creator.DisplayName))
			continue
		}

		since := time.Time{}
		cursor, err := s.store.GetCursor(ctx, creator.ID)
		if err != nil {
			return summary, err
		}
		if cursor != nil {
			since = cursor.LastFetchedAt
		}
		summary.CreatorsScanned++

		s.logger.Info("discovering clips",
			logging.String(logging.FieldCreator, creator.DisplayName),
			logging.String(logging.FieldPlatform, creator.Platform),
			logging.String("since", sinceLabel(since)))

		candidates, err := client.FetchRecentClips(ctx, creator, since)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failures++
			s.logger.Error("discovery failed for creator",
				logging.String(logging.FieldCreator, creator.DisplayName),
				logging.String(logging.FieldPlatform, creator.Platform),
				logging.Error(err))
			continue
		}
		summary.Candidates += len(candidates)
		if len(candidates) == 0 {
			s.logger.Info("no new clips",
				logging.String(logging.FieldCreator, creator.DisplayName))
			continue
		}

		inserted, duplicates, filtered := s.recordCandidates(ctx, profile, rules, creator, candidates, maxPerCreator)
		summary.Inserted += inserted
		summary.Duplicates += duplicates
		summary.Filtered += filtered

		newest, newestKey := newestCandidate(candidates)
		if !newest.IsZero() {
			if _, err := s.store.AdvanceCursor(ctx, creator.ID, newest, cursorState(newestKey, len(candidates))); err != nil {
				return summary, err
			}
		}

		s.logger.Info("creator scan complete",
			logging.String(logging.FieldCreator, creator.DisplayName),
			logging.Int("candidates", len(candidates)),
			logging.Int("inserted", inserted))
	}

	return summary, nil
}

// recordCandidates applies profile rules and the per-creator cap, then
// inserts survivors. Per-candidate insert errors are logged and skipped.
func (s *Service) recordCandidates(ctx context.Context, profile *clips.Profile, rules profiles.Rules, creator *clips.Creator, candidates []Candidate, maxPerCreator int) (inserted, duplicates, filtered int) {
	kept := 0
	for _, candidate := range candidates {
		if maxPerCreator > 0 && kept >= maxPerCreator {
			break
		}
		if lang := candidate.Metadata.Language; lang != "" && !rules.MatchesLanguage(lang) {
			filtered++
			continue
		}
		kept++

		clip := &clips.Clip{
			ProfileID: profile.ID,
			CreatorID: creator.ID,
			Platform:  candidate.Platform,
			ClipKey:   candidate.ClipKey,
			Metadata:  candidate.Metadata,
		}
		ok, err := s.store.InsertDiscovered(ctx, clip)
		if err != nil {
			s.logger.Warn("skipped clip",
				logging.String(logging.FieldClipKey, candidate.ClipKey),
				logging.Error(err))
			continue
		}
		if !ok {
			duplicates++
			continue
		}
		inserted++
		s.logger.Info("clip discovered",
			logging.String(logging.FieldClipKey, candidate.ClipKey),
			logging.String(logging.FieldPlatform, candidate.Platform),
			logging.String("title", candidate.Metadata.Title))
	}
	return inserted, duplicates, filtered
}

// newestCandidate returns the latest creation time observed in the batch and
// the key of the clip that carried it.
func newestCandidate(candidates []Candidate) (time.Time, string) {
	var newest time.Time
	var key string
	for _, candidate := range candidates {
		if candidate.CreatedAt.After(newest) {
			newest = candidate.CreatedAt
			key = candidate.ClipKey
		}
	}
	return newest, key
}

// cursorState builds the JSON document stored in the cursor's platform state
// column. It records which clip moved the watermark so a stuck cursor can be
// diagnosed from the database alone.
func cursorState(newestKey string, fetched int) string {
	state, err := sjson.Set("", "newest_clip_key", newestKey)
	if err != nil {
		return ""
	}
	state, err = sjson.Set(state, "candidates", fetched)
	if err != nil {
		return ""
	}
	return state
}

func sinceLabel(since time.Time) string {
	if since.IsZero() {
		return "never"
	}
	return since.UTC().Format(time.RFC3339)
}

// parsePlatformTime interprets the creation timestamps platforms hand back.
// Twitch speaks RFC 3339; Kick has been observed using both RFC 3339 and a
// bare "YYYY-MM-DD HH:MM:SS" form. Unparseable values yield the zero time.
func parsePlatformTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
