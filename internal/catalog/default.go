package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Default loads the embedded catalogue shipped with the binary.
func Default() (*Catalog, error) {
	cat, err := Load(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return cat, nil
}
