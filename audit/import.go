package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/routemanager/catalog"
)

// Sink stores audit records. Records already present for the same path and
// date are left untouched and not counted.
type Sink interface {
	SaveAudits(ctx context.Context, recs []catalog.AuditRecord) (int, error)
}

// Batch is the outcome of storing one set of pages.
type Batch struct {
	ID     string
	Date   time.Time
	Pages  int
	Stored int
	// Skipped counts pages without a usable path.
	Skipped int
}

// Store converts pages into one batch dated now and hands them to sink.
func Store(ctx context.Context, pages []Page, sink Sink, now time.Time) (Batch, error) {
	b := Batch{ID: uuid.NewString(), Date: now.UTC(), Pages: len(pages)}
	recs := make([]catalog.AuditRecord, 0, len(pages))
	for _, p := range pages {
		rec := p.Record(b.Date, b.ID)
		if rec.Path == "" {
			b.Skipped++
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return b, nil
	}
	n, err := sink.SaveAudits(ctx, recs)
	if err != nil {
		return b, fmt.Errorf("audit: store batch %s: %w", b.ID, err)
	}
	b.Stored = n
	return b, nil
}

// Import decodes an auditor results file from r and stores it as one batch.
func Import(ctx context.Context, r io.Reader, sink Sink, now time.Time) (Batch, error) {
	pages, err := DecodePages(r)
	if err != nil {
		return Batch{}, err
	}
	return Store(ctx, pages, sink, now)
}
