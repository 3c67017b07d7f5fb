package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vinodex/invoice-reconciler/constants"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
)

// Subfolder names a processed file is moved into when MoveFiles is set.
const (
	doneDir      = "done"
	duplicateDir = "duplicate"
	failedDir    = "failed"
)

// DirectoryIngestor runs the pipeline over files on disk. With MoveFiles set,
// each file is moved into a done/duplicate/failed subfolder of its directory
// after processing, so re-running the same inbox is idempotent even without
// the content-hash guard.
type DirectoryIngestor struct {
	Processor *pipeline.Processor
	Logger    *slog.Logger
	MoveFiles bool
}

func NewDirectoryIngestor(p *pipeline.Processor, logger *slog.Logger) *DirectoryIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryIngestor{Processor: p, Logger: logger}
}

// AllowedExt reports whether ext names an ingestable file type.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports whether the path's base name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// IngestFile runs one file through the pipeline and classifies the result.
// Errors are folded into the result; the caller decides whether a failed file
// aborts the batch.
func (i *DirectoryIngestor) IngestFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	if !AllowedExt(filepath.Ext(path)) {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Sprintf("unsupported extension %q", filepath.Ext(path))
		return res
	}
	content, err := os.ReadFile(path)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		return res
	}

	doc := entity.RawDocument{
		ID:          uuid.New(),
		Filename:    filepath.Base(path),
		ContentType: "application/pdf",
		Content:     content,
	}
	processed, err := i.Processor.Process(ctx, doc)
	switch {
	case pipeline.IsDuplicate(err):
		res.Outcome = OutcomeDuplicate
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
	case processed.RequiresReview:
		res.DocumentID = processed.ID
		res.Outcome = OutcomeReview
	default:
		res.DocumentID = processed.ID
		res.Outcome = OutcomeProcessed
	}

	if i.MoveFiles {
		if err := i.moveByOutcome(path, res.Outcome); err != nil {
			i.Logger.Warn("file not moved", "path", path, "err", err)
		}
	}
	return res
}

// IngestDirectory walks root, skipping hidden entries when skipHidden is set,
// and ingests every allowed file. A per-file failure never stops the walk.
func (i *DirectoryIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Outcome: OutcomeFailed, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if d.IsDir() {
			// Never descend into our own outcome folders.
			base := filepath.Base(path)
			if path != root && (base == doneDir || base == duplicateDir || base == failedDir) {
				return filepath.SkipDir
			}
			if skipHidden && path != root && IsHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if skipHidden && IsHidden(path) {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res := i.IngestFile(ctx, path)
		results = append(results, res)
		switch res.Outcome {
		case OutcomeProcessed:
			stats.Processed++
		case OutcomeReview:
			stats.Review++
		case OutcomeDuplicate:
			stats.Duplicated++
		case OutcomeFailed:
			stats.Failed++
		}
		return ctx.Err()
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *DirectoryIngestor) moveByOutcome(path string, outcome Outcome) error {
	var sub string
	switch outcome {
	case OutcomeProcessed, OutcomeReview:
		sub = doneDir
	case OutcomeDuplicate:
		sub = duplicateDir
	default:
		sub = failedDir
	}
	dir := filepath.Join(filepath.Dir(path), sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}
