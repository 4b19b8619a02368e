package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/raizurai/userhub/internal/config"
)

// FileSink appends records as JSON lines to a size-rotated file.
type FileSink struct {
	file   *lumberjack.Logger
	logger *logrus.Logger
}

func NewFileSink(path string, rot config.RotationConfig) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "event",
		},
	})

	return &FileSink{file: f, logger: logger}, nil
}

func (s *FileSink) Write(_ context.Context, rec Record) error {
	s.logger.WithFields(logrus.Fields{
		"request_id": rec.RequestID,
		"method":     rec.Method,
		"path":       rec.Path,
		"client":     rec.Client,
		"status":     rec.Status,
		"elapsed_ms": rec.ElapsedMS,
		"at":         rec.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}).Info("request")

	return nil
}

func (s *FileSink) Close() error {
	return s.file.Close()
}
