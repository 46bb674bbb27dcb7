// Package moderation is the lexical half of content safety. PreFilter
// hard-rejects transcripts on slur, gambling, and explicit-content pattern
// sets plus profanity caps before a model ever sees the clip; BleepMap and
// CensorText drive word-level audio mutes and caption substitution for clips
// that keep a tolerable amount of profanity. The model-verdict half lives in
// the decide stage.
package moderation
