package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// archiveLockKey guards against overlapping archive runs.
const archiveLockKey = "audit-archive"

// archiveLockTTL bounds how long a crashed run can hold the lock.
const archiveLockTTL = 15 * time.Minute

// ArchiveService exports old audit-log entries to object storage as JSON
// lines and deletes them from the primary store afterwards. Listings and
// offers are never deleted; only the audit trail rotates out.
type ArchiveService struct {
	audit  domain.AuditStore
	writer domain.BlobWriter
	reader domain.BlobReader
	locks  domain.LockManager
	logger *slog.Logger
}

// NewArchiveService creates an ArchiveService. locks may be nil for
// single-instance deployments.
func NewArchiveService(audit domain.AuditStore, writer domain.BlobWriter, locks domain.LockManager, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{
		audit:  audit,
		writer: writer,
		locks:  locks,
		logger: logger.With(slog.String("component", "archive_service")),
	}
}

// WithReader enables a read-back check of each uploaded archive before the
// source entries are deleted.
func (s *ArchiveService) WithReader(reader domain.BlobReader) *ArchiveService {
	s.reader = reader
	return s
}

// Run archives every audit entry older than the retention window. It
// returns the number of entries shipped. A run that finds nothing to
// archive uploads nothing and returns zero.
func (s *ArchiveService) Run(ctx context.Context, retention time.Duration) (int64, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, archiveLockKey, archiveLockTTL)
		if err != nil {
			return 0, fmt.Errorf("archive_service: %w", err)
		}
		defer unlock()
	}

	cutoff := time.Now().UTC().Add(-retention)

	entries, err := s.audit.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive_service: list entries: %w", err)
	}
	if len(entries) == 0 {
		s.logger.InfoContext(ctx, "archive_service: nothing to archive",
			slog.Time("cutoff", cutoff),
		)
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return 0, fmt.Errorf("archive_service: encode entry %d: %w", e.ID, err)
		}
	}

	now := time.Now().UTC()
	path := fmt.Sprintf("audit/%s/audit-%s.jsonl", now.Format("2006/01/02"), now.Format("20060102T150405"))

	if err := s.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive_service: upload %s: %w", path, err)
	}

	if s.reader != nil {
		ok, err := s.reader.Exists(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("archive_service: verify %s: %w", path, err)
		}
		if !ok {
			return 0, fmt.Errorf("archive_service: verify %s: object missing after upload", path)
		}
	}

	// Delete only after the upload succeeded.
	deleted, err := s.audit.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive_service: delete entries: %w", err)
	}

	s.logger.InfoContext(ctx, "archive_service: archived audit entries",
		slog.Int("entries", len(entries)),
		slog.Int64("deleted", deleted),
		slog.String("path", path),
	)
	return int64(len(entries)), nil
}
