package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type ledgerStore struct {
	records map[int64]*entity.UnresolvedItemRecord
}

func (f *ledgerStore) Insert(_ context.Context, rec entity.UnresolvedItemRecord) (int64, error) {
	rec.ID = int64(len(f.records) + 1)
	f.records[rec.ID] = &rec
	return rec.ID, nil
}

func (f *ledgerStore) ListPending(context.Context) ([]entity.UnresolvedItemRecord, error) {
	var out []entity.UnresolvedItemRecord
	for _, rec := range f.records {
		if !rec.Resolved {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *ledgerStore) Get(_ context.Context, id int64) (*entity.UnresolvedItemRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *ledgerStore) Resolve(_ context.Context, p repository.ResolveParams) (*entity.UnresolvedItemRecord, error) {
	rec, ok := f.records[p.RecordID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if rec.Resolved {
		return nil, common.ErrAlreadyResolved
	}
	now := time.Now().UTC()
	rec.Resolved = true
	rec.ResolvedEntryID = &p.EntryID
	rec.ResolvedAt = &now
	cp := *rec
	return &cp, nil
}

func (f *ledgerStore) PurgeOrphaned(context.Context) (int64, error) { return 0, nil }

func newTestServer(store *ledgerStore) *Server {
	return New(nil, nil, nil, ledger.NewService(store, nil), nil, nil, 1<<20)
}

func TestResolveEndpoint(t *testing.T) {
	store := &ledgerStore{records: map[int64]*entity.UnresolvedItemRecord{
		1: {ID: 1, Description: "VINO BLANCO JOVEN"},
	}}
	router := newTestServer(store).Router()

	body := bytes.NewBufferString(`{"entry_id": 7, "create_alias": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/unresolved/1/resolve", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var rec entity.UnresolvedItemRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Resolved)
	require.NotNil(t, rec.ResolvedEntryID)
	assert.Equal(t, int64(7), *rec.ResolvedEntryID)
}

func TestResolveEndpointConflictOnRetry(t *testing.T) {
	store := &ledgerStore{records: map[int64]*entity.UnresolvedItemRecord{
		1: {ID: 1, Description: "VINO BLANCO JOVEN"},
	}}
	router := newTestServer(store).Router()

	do := func() *httptest.ResponseRecorder {
		body := bytes.NewBufferString(`{"entry_id": 7}`)
		req := httptest.NewRequest(http.MethodPost, "/api/unresolved/1/resolve", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_resolved")
}

func TestResolveEndpointValidation(t *testing.T) {
	router := newTestServer(&ledgerStore{records: map[int64]*entity.UnresolvedItemRecord{}}).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/unresolved/abc/resolve",
		bytes.NewBufferString(`{"entry_id": 7}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/unresolved/1/resolve",
		bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "entry_id is required")
}

func TestGetUnresolvedNotFound(t *testing.T) {
	router := newTestServer(&ledgerStore{records: map[int64]*entity.UnresolvedItemRecord{}}).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/unresolved/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
