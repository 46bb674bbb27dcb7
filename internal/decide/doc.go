// Package decide turns a transcribed clip into an edit decision. The stage
// runs the lexical pre-filter first so obviously unusable clips never cost a
// model call, then asks the LLM to pick the best segment, score viral
// potential, judge brand safety, and draft per-destination post copy. The
// validated decision is written once to edit_decision.json beside the clip
// source; the renderer and packager consume it from there.
package decide
