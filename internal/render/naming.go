package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnidentified reports an output whose project cannot be determined.
var ErrUnidentified = errors.New("output project unidentified")

// Identity names the project and version an output belongs to.
type Identity struct {
	ProjectID string
	// VersionID is zero when the version is unknown.
	VersionID int64
	// FromManifest is set when the identity came from a sidecar manifest.
	FromManifest bool
}

// ParseOutputName derives identity from "<projectId>@<versionId>.<ext>" or
// the legacy "<projectId>.<ext>". The project id is the part before "@",
// truncated at its first "." when it has one.
func ParseOutputName(name string) (Identity, error) {
	base := filepath.Base(name)
	left, right, hasVersion := strings.Cut(base, "@")
	if i := strings.IndexByte(left, '.'); i >= 0 {
		left = left[:i]
	}
	if left == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnidentified, base)
	}
	id := Identity{ProjectID: left}
	if hasVersion {
		digits, _, _ := strings.Cut(right, ".")
		if v, err := strconv.ParseInt(digits, 10, 64); err == nil && v > 0 {
			id.VersionID = v
		}
	}
	return id, nil
}
