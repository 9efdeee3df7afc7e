package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/ingest"
	"github.com/joseph-ayodele/nominas/internal/ocr"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

// openDocument hashes the file, opens it for page iteration and registers it.
// The caller owns the returned document and must Close it.
func (p *Processor) openDocument(ctx context.Context, path string) (*ocr.Document, *repository.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("abs path: %w", err)
	}
	hash, err := ingest.HashFile(abs)
	if err != nil {
		return nil, nil, err
	}

	doc, err := p.source.Open(ctx, abs)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", abs, err)
	}

	stored, err := p.repo.UpsertDocument(ctx, &repository.Document{
		SourcePath:  abs,
		ContentHash: hash,
		Pages:       doc.PageCount(),
	})
	if err != nil {
		_ = doc.Close()
		return nil, nil, err
	}

	p.logger.Info("processor.document.open",
		"path", abs,
		"document_id", stored.ID,
		"format", doc.Format,
		"pages", doc.PageCount(),
		"content_hash", hash,
	)
	return doc, stored, nil
}

func withDocument(ctx context.Context, id uuid.UUID) context.Context {
	return common.WithDocumentID(ctx, id.String())
}
