package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// SystemLogService writes operational events to both the structured
// logger and the system_logs audit table.
type SystemLogService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *SystemLogService) Info(ctx context.Context, component, message string, details map[string]any) {
	s.write(ctx, "info", component, message, details)
}

func (s *SystemLogService) Warn(ctx context.Context, component, message string, details map[string]any) {
	s.write(ctx, "warn", component, message, details)
}

func (s *SystemLogService) Error(ctx context.Context, component, message string, details map[string]any) {
	s.write(ctx, "error", component, message, details)
}

func (s *SystemLogService) write(ctx context.Context, level, component, message string, details map[string]any) {
	if s == nil {
		return
	}
	if s.Logger != nil {
		fields := []zap.Field{zap.String("component", component)}
		for key, value := range details {
			fields = append(fields, zap.Any(key, value))
		}
		switch level {
		case "error":
			s.Logger.Error(message, fields...)
		case "warn":
			s.Logger.Warn(message, fields...)
		default:
			s.Logger.Info(message, fields...)
		}
	}
	if s.Repo == nil {
		return
	}
	item := &models.SystemLog{
		Level:     level,
		Component: component,
		Message:   message,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			item.Details = datatypes.JSON(raw)
		}
	}
	// Audit writes are best effort, the structured log already has it.
	_ = s.Repo.InsertSystemLog(ctx, item)
}
