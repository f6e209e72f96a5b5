package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Archiver snapshots closed settlement history to object storage. It queries
// the primary store for records older than a cutoff, serializes them as
// JSONL, and uploads the result under a year-month partition.
//
// Archived records are NOT deleted from the primary store here; pruning is a
// separate, explicit step run after the archive has been verified.
type Archiver struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	entries domain.LedgerEntryStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver. reader may be nil; when present,
// already-archived partitions are skipped instead of re-uploaded.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, entries domain.LedgerEntryStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:  writer,
		reader:  reader,
		entries: entries,
		audit:   audit,
	}
}

// ArchiveLedger uploads every fund movement recorded strictly before the
// cutoff to archive/settlements/YYYY-MM.jsonl and writes an audit row. It
// returns the number of archived records; zero when there was nothing to
// archive or the partition already exists.
func (a *Archiver) ArchiveLedger(ctx context.Context, before time.Time) (int64, error) {
	path := archivePath("settlements", before)
	if skip, err := a.alreadyArchived(ctx, path); err != nil {
		return 0, err
	} else if skip {
		return 0, nil
	}

	entries, err := a.entries.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger marshal: %w", err)
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger upload: %w", err)
	}

	count := int64(len(entries))
	if err := a.audit.Log(ctx, "archive.ledger", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive ledger audit log: %w", err)
	}

	return count, nil
}

// ArchiveAudit uploads every audit row recorded strictly before the cutoff to
// archive/audit/YYYY-MM.jsonl and returns the number of archived records.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	path := archivePath("audit", before)
	if skip, err := a.alreadyArchived(ctx, path); err != nil {
		return 0, err
	} else if skip {
		return 0, nil
	}

	rows, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	return int64(len(rows)), nil
}

// Run archives both record kinds in one shot; used by the periodic job.
func (a *Archiver) Run(ctx context.Context, before time.Time) error {
	if _, err := a.ArchiveLedger(ctx, before); err != nil {
		return err
	}
	if _, err := a.ArchiveAudit(ctx, before); err != nil {
		return err
	}
	return nil
}

func (a *Archiver) alreadyArchived(ctx context.Context, path string) (bool, error) {
	if a.reader == nil {
		return false, nil
	}
	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("s3blob: archive check %s: %w", path, err)
	}
	return exists, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time, e.g. archive/settlements/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
