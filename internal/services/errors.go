package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrContentPolicy = errors.New("content policy rejection")
	ErrDataIntegrity = errors.New("data integrity failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

type failReasonError struct {
	reason string
	err    error
}

func (e *failReasonError) Error() string {
	if e.err != nil {
		return e.reason + ": " + e.err.Error()
	}
	return e.reason
}

func (e *failReasonError) Unwrap() error { return e.err }

// WithFailReason tags err with the machine-readable reason the workflow
// persists on the clip when it records the failure. A nil err with a reason
// still produces an error, which lets deterministic rejections (quality
// gates, moderation) surface as failures without a separate cause.
func WithFailReason(err error, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return err
	}
	return &failReasonError{reason: reason, err: err}
}

// FailureReason maps a stage error to the fail reason recorded on the clip.
// Reasons tagged via WithFailReason win; anything else gets the stage's
// catch-all fallback.
func FailureReason(err error, fallback string) string {
	var tagged *failReasonError
	if errors.As(err, &tagged) && tagged.reason != "" {
		return tagged.reason
	}
	return strings.TrimSpace(fallback)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
