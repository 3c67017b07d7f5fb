package async

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/extract"
	"github.com/vinodex/invoice-reconciler/internal/ingest"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/parsers"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

// gatedExtractor parks every Extract call until gate closes, so a test can
// hold workers busy while the queue fills.
type gatedExtractor struct {
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedExtractor) Extract(ctx context.Context, _ []byte) (extract.TextExtractionResult, error) {
	g.started <- struct{}{}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return extract.TextExtractionResult{}, ctx.Err()
	}
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

func newGatedIngestor(t *testing.T, ext *gatedExtractor) *ingest.DirectoryIngestor {
	t.Helper()
	registry := parsers.NewRegistry()
	registry.Register("stubvendor", []string{"STUBVENDOR SA"}, stubParser{})
	proc := pipeline.NewProcessor(nil, ext, registry, memCatalog{},
		&memDocuments{hashes: map[string]bool{}}, ledger.NewService(memUnresolved{}, nil),
		common.DefaultTolerances())
	return ingest.NewDirectoryIngestor(proc, nil)
}

func writeInvoices(t *testing.T, n int) []string {
	t.Helper()
	root := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(root, fmt.Sprintf("factura-%d.pdf", i))
		require.NoError(t, os.WriteFile(paths[i], []byte(fmt.Sprintf("doc-%d", i)), 0o644))
	}
	return paths
}

// A sender parked on a full queue must not hold the mutex, or Shutdown can
// never run.
func TestShutdownNotBlockedByFullQueue(t *testing.T) {
	ext := &gatedExtractor{started: make(chan struct{}, 1), gate: make(chan struct{})}
	q := NewIngestQueue(newGatedIngestor(t, ext), nil, WithWorkers(1), WithQueueSize(1))
	paths := writeInvoices(t, 3)

	// First job occupies the worker, second fills the buffer, third blocks
	// waiting for a slot.
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: paths[0], SubmittedAt: time.Now()}))
	<-ext.started
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: paths[1], SubmittedAt: time.Now()}))

	blockedCtx, cancelBlocked := context.WithCancel(context.Background())
	defer cancelBlocked()
	blockedErr := make(chan error, 1)
	go func() {
		blockedErr <- q.Enqueue(blockedCtx, Job{Path: paths[2], SubmittedAt: time.Now()})
	}()
	// The sender must be parked on the full channel before Shutdown flips the
	// closed flag, or it takes the refused-after-shutdown path instead.
	time.Sleep(50 * time.Millisecond)

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShut()
	shutDone := make(chan struct{})
	go func() {
		q.Shutdown(shutCtx)
		close(shutDone)
	}()
	select {
	case <-shutDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown stalled behind a blocked sender")
	}

	cancelBlocked()
	select {
	case err := <-blockedErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked sender never unblocked")
	}
	close(ext.gate)
}

func TestEnqueueAfterShutdownIsRefused(t *testing.T) {
	ext := &gatedExtractor{started: make(chan struct{}, 1), gate: make(chan struct{})}
	close(ext.gate)
	q := NewIngestQueue(newGatedIngestor(t, ext), nil, WithWorkers(1))
	paths := writeInvoices(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: paths[0], SubmittedAt: time.Now()}))
}
