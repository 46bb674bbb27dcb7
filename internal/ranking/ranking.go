// Package ranking picks which rendered clips survive into packaging.
//
// A run can render more clips than a profile wants to publish. SelectTopN
// keeps the strongest N by viral score and demotes the rest, so packaging
// only ever sees clips worth posting. Demotion is informational: the clip
// fails with a cut reason but every artifact stays on disk.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/NovoNihilo/clipforge/internal/clips"
)

// CutReason marks clips demoted by selection rather than by a defect.
const CutReason = "cut:below_top_n"

// Selection reports the outcome of one SelectTopN pass.
type Selection struct {
	Kept []*clips.Clip
	Cut  []*clips.Clip
}

// SelectTopN ranks a profile's RENDERED clips by viral score (descending,
// missing scores count as zero) with ties broken by earliest update, keeps
// the first n, and fails the remainder with the cut reason. Calling it again
// after a partial run is safe: already-demoted clips are no longer RENDERED
// and drop out of the candidate set.
func SelectTopN(ctx context.Context, store *clips.Store, profile *clips.Profile, n int) (Selection, error) {
	if n <= 0 {
		return Selection{}, fmt.Errorf("select top-n: n must be positive, got %d", n)
	}

	rendered, err := store.ListForProfile(ctx, profile.ID, clips.StatusRendered)
	if err != nil {
		return Selection{}, fmt.Errorf("select top-n: list rendered: %w", err)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		si, sj := score(rendered[i]), score(rendered[j])
		if si != sj {
			return si > sj
		}
		return rendered[i].UpdatedAt.Before(rendered[j].UpdatedAt)
	})

	sel := Selection{}
	if len(rendered) <= n {
		sel.Kept = rendered
		return sel, nil
	}
	sel.Kept = rendered[:n]

	for _, clip := range rendered[n:] {
		res, err := store.FailFrom(ctx, clip, CutReason)
		if err != nil {
			return sel, fmt.Errorf("select top-n: demote clip %d: %w", clip.ID, err)
		}
		if !res.Advanced {
			// Another writer moved it; it is no longer ours to cut.
			continue
		}
		sel.Cut = append(sel.Cut, clip)
	}
	return sel, nil
}

func score(c *clips.Clip) int {
	if c.ViralScore == nil {
		return 0
	}
	return *c.ViralScore
}
