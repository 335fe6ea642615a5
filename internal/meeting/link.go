// Package meeting generates the video-meeting links attached to consultations.
package meeting

import (
	"strings"

	"github.com/google/uuid"
)

// LinkGenerator produces opaque meeting URLs. Tokens only need to be unique,
// not unguessable; no collision check is performed against the store.
type LinkGenerator interface {
	Generate() string
}

// Generator builds links of the form <base-url>/<uuid>.
type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Generator) Generate() string {
	return g.baseURL + "/" + uuid.New().String()
}
