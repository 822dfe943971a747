package services

import (
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessLogEntry is one pending audit write.
type AccessLogEntry struct {
	UserID     *uuid.UUID
	DocumentID *uuid.UUID
	FolderID   *uuid.UUID
	Action     string
	Metadata   map[string]interface{}
	IPAddress  string
	RequestID  string
}

// AuditService writes document access logs off the request path. Entries are
// queued on a buffered channel and persisted by a single background worker;
// a full queue drops the entry rather than blocking a handler.
type AuditService struct {
	db    *gorm.DB
	queue chan AccessLogEntry
	done  chan struct{}
}

func NewAuditService(db *gorm.DB) *AuditService {
	s := &AuditService{
		db:    db,
		queue: make(chan AccessLogEntry, 1024),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

// LogAsync enqueues an audit entry. Never blocks.
func (s *AuditService) LogAsync(entry AccessLogEntry) {
	select {
	case s.queue <- entry:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action": entry.Action,
		})
	}
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for entry := range s.queue {
		row := models.DocumentAccessLog{
			UserID:     entry.UserID,
			DocumentID: entry.DocumentID,
			FolderID:   entry.FolderID,
			Action:     entry.Action,
			Metadata:   entry.Metadata,
			IPAddress:  entry.IPAddress,
			RequestID:  entry.RequestID,
		}
		if err := s.db.Create(&row).Error; err != nil {
			logger.Error("audit_write_failed", err, map[string]interface{}{
				"action": entry.Action,
			})
		}
	}
}

// Close drains the queue and stops the worker.
func (s *AuditService) Close() {
	close(s.queue)
	<-s.done
}
