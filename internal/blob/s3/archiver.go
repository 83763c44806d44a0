package s3blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// Archiver snapshots terminal bet records into cold storage. The primary
// store keeps its copy; the archive exists for audits and offline analysis.
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveRecord uploads one record as a JSON document. Objects are keyed by
// target date and record id:
//
//	archive/bets/2026-08-29/<id>.json
func (a *Archiver) ArchiveRecord(ctx context.Context, rec domain.BetRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal record %s: %w", rec.ID, err)
	}

	path := fmt.Sprintf("archive/bets/%s/%s.json", rec.TargetDate, rec.ID)
	if err := a.writer.Put(ctx, path, data, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive record %s: %w", rec.ID, err)
	}
	return nil
}
