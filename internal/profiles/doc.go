// Package profiles defines the per-profile ruleset shared between pipeline
// stages.
//
// The Rules type captures everything a profile prescribes for its clips:
// which categories and languages discovery accepts, the target length band
// and hook/silence limits the quality gates enforce, the caption styling the
// decider and renderer apply, and the hashtag bank, title template, and
// selection quotas used when publishing. Stages read the same document rather
// than maintaining separate knobs, so the ruleset is the single source of
// truth for how a profile shapes its output.
//
// Rules are persisted as JSON in profiles.rules_json. Parse loads a document
// (blank input yields the default ruleset, and absent fields keep their
// default values), Encode serialises one back, and Validate reports every
// structural problem at once.
package profiles
