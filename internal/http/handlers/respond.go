package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/service"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id, ok := observability.RequestIDFrom(ctx.Request.Context()); ok {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondConflict uses 400 rather than 409; clients of the API expect
// duplicates to be reported as bad requests.
func RespondConflict(ctx *gin.Context, field, message string) {
	RespondError(ctx, http.StatusBadRequest, field+"_taken", message, gin.H{"field": field})
}

// RespondServiceError maps the service error taxonomy onto the error envelope.
// Anything unrecognised is logged and reported as a generic 500.
func RespondServiceError(ctx *gin.Context, err error) {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		notFound   *service.NotFoundError
		internal   *service.InternalError
	)

	switch {
	case errors.As(err, &validation):
		RespondBadRequest(ctx, "Invalid request", gin.H{
			"fields": []FieldError{{Field: validation.Field, Rule: "invalid", Message: validation.Message}},
		})
	case errors.As(err, &conflict):
		RespondConflict(ctx, conflict.Field, conflictMessage(conflict.Field))
	case errors.As(err, &notFound):
		RespondNotFound(ctx, notFound.Error())
	case errors.As(err, &internal):
		slog.Default().ErrorContext(ctx.Request.Context(), "request.internal_error",
			slog.String("op", internal.Op),
			slog.String("error", err.Error()),
		)
		RespondInternal(ctx, "Internal server error")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request.failed",
			slog.String("path", ctx.FullPath()),
			slog.String("error", err.Error()),
		)
		RespondInternal(ctx, "Internal server error")
	}
}

func conflictMessage(field string) string {
	if field == "email" {
		return "Email already registered"
	}

	return "Username already registered"
}
