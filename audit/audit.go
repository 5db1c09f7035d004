// Package audit writes activity-log entries without blocking the caller.
// A failed audit write never fails the operation it describes.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

type Logger struct {
	logs  store.ActivityLogStore
	clock func() time.Time
}

func New(logs store.ActivityLogStore) *Logger {
	return &Logger{logs: logs, clock: time.Now}
}

// Log records an entry asynchronously.
func (l *Logger) Log(action, actor, details string) {
	entry := mongo.ActivityLog{
		CorrelationID: uuid.NewString(),
		Action:        action,
		Actor:         actor,
		Details:       details,
		CreatedAt:     l.clock(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.logs.InsertActivityLog(ctx, entry); err != nil {
			log.Errorf("audit, err=%v", err)
		}
	}()
}
