package audit

import (
	"context"
	"time"

	"chatguard/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Logger records moderation actions to the audit trail. Persistence failures
// are swallowed: an audit write must never abort the action it describes.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) Log(ctx context.Context, level, roomID, accountID, event, details string) {
	entry := storage.AuditLog{
		RoomID:    roomID,
		AccountID: accountID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddAuditLog(ctx, entry)
	}
	if l.logger != nil {
		l.logger.Info("audit",
			zap.String("level", level),
			zap.String("room_id", roomID),
			zap.String("account_id", accountID),
			zap.String("event", event),
			zap.String("details", details))
	}
}
