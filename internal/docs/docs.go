// Package docs embeds the OpenAPI document for the HTTP API.
package docs

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed openapi.yaml
var openAPI []byte

func OpenAPI() []byte {
	return openAPI
}

// Export writes the embedded document to path, creating parent directories.
func Export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create docs dir: %w", err)
	}

	if err := os.WriteFile(path, openAPI, 0o644); err != nil {
		return fmt.Errorf("write openapi: %w", err)
	}

	return nil
}
