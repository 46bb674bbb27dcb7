package stage

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/services"
)

// RequireArtifact verifies that an artifact path recorded on a clip still
// points at a file on disk before a stage consumes it. A blank path or a
// missing file is a data-integrity failure: it means an upstream stage
// skipped its bookkeeping or someone removed the file by hand.
// On success the file size is returned for cheap output validation.
func RequireArtifact(stageName, artifact, path string) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, services.Wrap(services.ErrDataIntegrity, stageName, "locate "+artifact,
			"No "+artifact+" path recorded for clip", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrDataIntegrity, stageName, "locate "+artifact,
				"Recorded "+artifact+" file is missing: "+path, nil)
		}
		return 0, services.Wrap(services.ErrDataIntegrity, stageName, "locate "+artifact,
			"Cannot access "+artifact+" file", err)
	}
	if info.IsDir() {
		return 0, services.Wrap(services.ErrDataIntegrity, stageName, "locate "+artifact,
			"Recorded "+artifact+" path is a directory: "+path, nil)
	}
	return info.Size(), nil
}
