// Package language normalizes language tags to bare ISO 639-1 codes.
//
// Tags arrive in different shapes depending on the source: platform clip
// APIs report regional variants like "en-GB", WhisperX reports two-letter
// codes, and profile rules may be written with three-letter codes or full
// names. Everything funnels through Normalize so filters compare equals.
package language
