package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldClipID is the standardized structured logging key for clip row identifiers.
	FieldClipID = "clip_id"
	// FieldClipKey is the standardized structured logging key for platform clip identifiers.
	FieldClipKey = "clip_key"
	// FieldPlatform is the standardized structured logging key for source platform names.
	FieldPlatform = "platform"
	// FieldProfile is the standardized structured logging key for profile slugs.
	FieldProfile = "profile"
	// FieldCreator is the standardized structured logging key for creator display names.
	FieldCreator = "creator"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldStatus is the standardized structured logging key for clip statuses.
	FieldStatus = "status"
	// FieldFailReason is the standardized structured logging key for terminal failure codes.
	FieldFailReason = "fail_reason"
	// FieldViralScore is the standardized structured logging key for LLM viral scores.
	FieldViralScore = "viral_score"
	// FieldRunID is the standardized structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldEventType tags records that downstream tooling filters on.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested operator next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact carries the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
