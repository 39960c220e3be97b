package fixtures

import "embed"

//go:embed sample/*.json
var sampleFS embed.FS

// Sample returns the bundled demonstration dataset.
func Sample() (*Dataset, error) {
	return LoadFS(sampleFS, "sample")
}
