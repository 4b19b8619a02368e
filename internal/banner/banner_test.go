package banner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/raizurai/userhub/internal/config"
)

func TestPrint(t *testing.T) {
	var cfg config.Config
	cfg.App.Name = "UserHub API"
	cfg.App.Version = "1.0.0"
	cfg.App.APIPrefix = "/api/v1"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8000
	cfg.Logging.Level = "info"

	var buf bytes.Buffer
	Print(&buf, cfg, "sqlite")

	out := buf.String()
	for _, want := range []string{"UserHub API v1.0.0", "sqlite", "INFO", "http://127.0.0.1:8000/docs", "/api/v1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("banner missing %q:\n%s", want, out)
		}
	}
}
