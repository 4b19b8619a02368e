package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAPI_DescribesUserRoutes(t *testing.T) {
	doc := OpenAPI()

	for _, want := range []string{"openapi: 3.0.3", "/api/v1/users/:", "/api/v1/users/{id}:", "UserResponse"} {
		if !bytes.Contains(doc, []byte(want)) {
			t.Fatalf("document is missing %q", want)
		}
	}
}

func TestExport_WritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "openapi.yaml")

	if err := Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, OpenAPI()) {
		t.Fatalf("exported document differs from embedded one")
	}
}
