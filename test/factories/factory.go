package factories

import (
	"strings"

	"github.com/google/uuid"
)

type Factories struct {
}

// NewID generates a new unique identifier compatible with Kubernetes DNS-1123
// subdomain naming requirements, so it can appear directly in resource names.
func (f *Factories) NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}
