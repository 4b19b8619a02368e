package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raizurai/userhub/internal/audit"
)

const auditWriteTimeout = 2 * time.Second

// Audit writes one audit.Record per request once the handler chain is done,
// including when a handler panics. A panicking request is recorded as 500 and
// the panic is passed on to the recovery middleware. A failing sink is logged
// and never changes the response.
func Audit(sink audit.Sink, log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		defer func() {
			p := recover()

			rec := audit.Record{
				RequestID: ctx.GetString(CtxRequestID),
				Method:    ctx.Request.Method,
				Path:      ctx.Request.URL.Path,
				Client:    ctx.ClientIP(),
				Status:    ctx.Writer.Status(),
				ElapsedMS: time.Since(start).Milliseconds(),
				At:        start.UTC(),
			}
			if p != nil {
				rec.Status = http.StatusInternalServerError
			}

			writeAudit(ctx, sink, log, rec)

			if p != nil {
				panic(p)
			}
		}()

		ctx.Next()
	}
}

func writeAudit(ctx *gin.Context, sink audit.Sink, log *slog.Logger, rec audit.Record) {
	// the request context may already be cancelled
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), auditWriteTimeout)
	defer cancel()

	if err := sink.Write(wctx, rec); err != nil {
		log.WarnContext(ctx.Request.Context(), "audit.write_failed",
			slog.String("request_id", rec.RequestID),
			slog.String("error", err.Error()),
		)
	}
}
