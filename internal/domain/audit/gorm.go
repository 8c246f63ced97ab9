package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"worklog-server-go/internal/platform/storage"
)

type gormSink struct {
	db *gorm.DB
}

// NewGormSink appends audit events to the shared durable database.
func NewGormSink(db *gorm.DB) (Sink, error) {
	if db == nil {
		return nil, fmt.Errorf("audit sink requires database handle")
	}
	return &gormSink{db: db}, nil
}

func (s *gormSink) Append(ctx context.Context, event Event) error {
	var detail datatypes.JSON
	if event.Detail != nil {
		data, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = datatypes.JSON(data)
	}

	record := &storage.AuditEventRecord{
		ActorID:    event.ActorID,
		Action:     string(event.Action),
		TargetType: event.TargetType,
		TargetID:   event.TargetID,
		Severity:   string(event.Severity),
		Outcome:    string(event.Outcome),
		SessionID:  event.SessionID,
		IP:         event.Origin.IP,
		UserAgent:  event.Origin.UserAgent,
		Detail:     detail,
		CreatedAt:  event.At,
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// QueryFilter narrows audit reads for the admin endpoint.
type QueryFilter struct {
	Action  Action
	ActorID *uint
	Since   time.Time
	Limit   int
}

// Query returns matching events, newest first. Reads are admin-only and never
// part of an authentication decision.
func Query(ctx context.Context, db *gorm.DB, filter QueryFilter) ([]storage.AuditEventRecord, error) {
	q := db.WithContext(ctx).Model(&storage.AuditEventRecord{})
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if filter.ActorID != nil {
		q = q.Where("actor_id = ?", *filter.ActorID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []storage.AuditEventRecord
	err := q.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
