package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/extract"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/parsers"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, []byte) (extract.TextExtractionResult, error) {
	return extract.TextExtractionResult{Lines: []string{"STUBVENDOR SA"}, Pages: 1}, nil
}

type stubParser struct{}

func (stubParser) Vendor() string { return "stubvendor" }
func (stubParser) Parse([]string) (entity.DocumentMetadata, []entity.DetectedLineItem, error) {
	return entity.DocumentMetadata{}, nil, nil
}

type memCatalog struct{}

func (memCatalog) ListEntries(context.Context) ([]entity.CatalogEntry, error) { return nil, nil }
func (memCatalog) ListAliases(context.Context) ([]entity.CatalogAlias, error) { return nil, nil }
func (memCatalog) GetEntry(context.Context, int64) (*entity.CatalogEntry, error) {
	return nil, common.ErrNotFound
}
func (memCatalog) CreateEntry(context.Context, entity.CatalogEntry) (int64, error) { return 0, nil }
func (memCatalog) CreateAlias(context.Context, string, int64) (int64, error)       { return 0, nil }
func (memCatalog) AdjustStock(context.Context, int64, int64, string) error         { return nil }

type memDocuments struct {
	hashes map[string]bool
}

func (m *memDocuments) Save(_ context.Context, doc *entity.ProcessedDocument) error {
	m.hashes[doc.ContentHash] = true
	return nil
}
func (m *memDocuments) ExistsByHash(_ context.Context, hash string) (bool, error) {
	return m.hashes[hash], nil
}
func (m *memDocuments) List(context.Context, repository.ListFilter) ([]repository.DocumentSummary, error) {
	return nil, nil
}
func (m *memDocuments) Get(context.Context, uuid.UUID) (*entity.ProcessedDocument, error) {
	return nil, common.ErrNotFound
}
func (m *memDocuments) SaveFailure(context.Context, entity.FailureRecord) error { return nil }
func (m *memDocuments) ListFailures(context.Context) ([]entity.FailureRecord, error) {
	return nil, nil
}

type memUnresolved struct{}

func (memUnresolved) Insert(context.Context, entity.UnresolvedItemRecord) (int64, error) {
	return 1, nil
}
func (memUnresolved) ListPending(context.Context) ([]entity.UnresolvedItemRecord, error) {
	return nil, nil
}
func (memUnresolved) Get(context.Context, int64) (*entity.UnresolvedItemRecord, error) {
	return nil, common.ErrNotFound
}
func (memUnresolved) Resolve(context.Context, repository.ResolveParams) (*entity.UnresolvedItemRecord, error) {
	return nil, common.ErrNotFound
}
func (memUnresolved) PurgeOrphaned(context.Context) (int64, error) { return 0, nil }

func newTestIngestor(t *testing.T, move bool) *DirectoryIngestor {
	t.Helper()
	registry := parsers.NewRegistry()
	registry.Register("stubvendor", []string{"STUBVENDOR SA"}, stubParser{})
	proc := pipeline.NewProcessor(nil, stubExtractor{}, registry, memCatalog{},
		&memDocuments{hashes: map[string]bool{}}, ledger.NewService(memUnresolved{}, nil),
		common.DefaultTolerances())
	ing := NewDirectoryIngestor(proc, nil)
	ing.MoveFiles = move
	return ing
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".pdf"))
	assert.True(t, AllowedExt("PDF"))
	assert.False(t, AllowedExt(".png"))
	assert.False(t, AllowedExt(""))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/inbox/.partial.pdf"))
	assert.False(t, IsHidden("/inbox/factura.pdf"))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), []byte("doc-a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.pdf"), []byte("doc-b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.pdf"), []byte("skip"), 0o644))

	ing := newTestIngestor(t, false)
	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, uint32(2), stats.Matched)
	// Zero detected items flags the document, so both land in review.
	assert.Equal(t, uint32(2), stats.Review)
	assert.Equal(t, uint32(0), stats.Failed)
}

func TestIngestMovesFilesByOutcome(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("doc-a"), 0o644))

	ing := newTestIngestor(t, true)
	res := ing.IngestFile(context.Background(), path)
	assert.Equal(t, OutcomeReview, res.Outcome)
	assert.FileExists(t, filepath.Join(root, "done", "a.pdf"))

	// Same bytes again: deduplicated and parked separately.
	dup := filepath.Join(root, "a-copy.pdf")
	require.NoError(t, os.WriteFile(dup, []byte("doc-a"), 0o644))
	res = ing.IngestFile(context.Background(), dup)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.FileExists(t, filepath.Join(root, "duplicate", "a-copy.pdf"))
}
