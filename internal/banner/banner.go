// Package banner prints the startup summary.
package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/raizurai/userhub/internal/config"
)

func Print(w io.Writer, cfg config.Config, dbKind string) {
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s v%s\n", cfg.App.Name, cfg.App.Version)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %-12s %s\n", "env:", cfg.App.Env)
	fmt.Fprintf(w, "  %-12s %s\n", "database:", dbKind)
	fmt.Fprintf(w, "  %-12s %s\n", "log level:", strings.ToUpper(cfg.Logging.Level))
	fmt.Fprintf(w, "  %-12s http://%s\n", "listening:", cfg.Server.Addr())
	fmt.Fprintf(w, "  %-12s http://%s/docs\n", "docs:", cfg.Server.Addr())
	fmt.Fprintf(w, "  %-12s %s\n", "api prefix:", cfg.App.APIPrefix)
	fmt.Fprintln(w, rule)
}
