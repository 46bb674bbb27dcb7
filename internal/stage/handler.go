package stage

import (
	"context"

	"github.com/NovoNihilo/clipforge/internal/clips"
)

// Handler describes the contract the pipeline runner needs from each
// per-clip stage. The runner owns the status transition: a nil Execute
// advances the clip From()→To(), an error fails it with the reason carried
// by services.WithFailReason (or the stage's catch-all). Artifact paths a
// stage records on the clip ride along with either transition.
type Handler interface {
	Name() string
	From() clips.Status
	To() clips.Status
	Execute(context.Context, *clips.Clip) error
	HealthCheck(context.Context) Health
}
