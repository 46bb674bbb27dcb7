// Package gates screens freshly transcribed clips before any model spend.
// Three deterministic checks run in fixed order (hook delay, silence ratio,
// length band) and the first failure produces the clip's terminal
// fail-reason code. Evaluation is pure: no I/O, no store access.
package gates
