package doc

import (
	"github.com/goccy/go-yaml"
)

// parseFrontmatter decodes the YAML metadata header.
// Scalar-only documents (a bare string, say) are rejected: metadata is
// always a mapping.
func parseFrontmatter(text string) (map[string]any, error) {
	meta := make(map[string]any)

	err := yaml.Unmarshal([]byte(text), &meta)
	if err != nil {
		return nil, err
	}

	if len(meta) == 0 {
		return nil, nil
	}

	return meta, nil
}
