package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
)

// DocumentSummary is the list-view projection of a processed document.
type DocumentSummary struct {
	ID             uuid.UUID `json:"id"`
	ProviderID     string    `json:"provider_id"`
	Filename       string    `json:"filename"`
	Folio          string    `json:"folio"`
	RequiresReview bool      `json:"requires_review"`
	LineCount      int       `json:"line_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFilter narrows a document listing. Zero values mean no constraint;
// From and To bound created_at inclusively.
type ListFilter struct {
	ReviewOnly bool
	ProviderID string
	From       *time.Time
	To         *time.Time
}

// DocumentRepository persists processed documents with their lines and
// review reasons, plus failure records for documents that never made it
// through the pipeline.
type DocumentRepository interface {
	Save(ctx context.Context, doc *entity.ProcessedDocument) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]DocumentSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.ProcessedDocument, error)
	SaveFailure(ctx context.Context, rec entity.FailureRecord) error
	ListFailures(ctx context.Context) ([]entity.FailureRecord, error)
}

type documentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) Save(ctx context.Context, doc *entity.ProcessedDocument) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reasons, err := json.Marshal(doc.ReviewReasons)
	if err != nil {
		return fmt.Errorf("marshal review reasons: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents
		 (id, provider_id, filename, content_hash, folio, folio_fiscal, issuer_rfc,
		  issue_date, declared_total, special_tax, requires_review, review_reasons, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.ProviderID, doc.Filename, doc.ContentHash,
		doc.Metadata.Folio, doc.Metadata.FolioFiscal, doc.Metadata.IssuerRFC,
		nullableTime(doc.Metadata.IssueDate), nullableDecimal(doc.Metadata.DeclaredTotal),
		doc.Metadata.SpecialTax, doc.RequiresReview, string(reasons), doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for i, line := range doc.Lines {
		findings, err := json.Marshal(line.Findings)
		if err != nil {
			return fmt.Errorf("marshal findings for line %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO document_lines
			 (document_id, entry_id, description, quantity, unit_price, line_total,
			  requires_review, findings, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID.String(), nullableInt64(line.EntryID), line.Description,
			nullableDecimal(line.Quantity), nullableDecimal(line.UnitPrice),
			nullableDecimal(line.LineTotal), line.RequiresReview, string(findings), i)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *documentRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE content_hash = ?`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by hash: %w", err)
	}
	return true, nil
}

func (r *documentRepository) List(ctx context.Context, filter ListFilter) ([]DocumentSummary, error) {
	query := `SELECT d.id, d.provider_id, d.filename, d.folio, d.requires_review,
	                 (SELECT COUNT(*) FROM document_lines l WHERE l.document_id = d.id),
	                 d.created_at
	          FROM documents d`
	var conds []string
	var args []any
	if filter.ReviewOnly {
		conds = append(conds, `d.requires_review = 1`)
	}
	if filter.ProviderID != "" {
		conds = append(conds, `d.provider_id = ?`)
		args = append(args, filter.ProviderID)
	}
	if filter.From != nil {
		conds = append(conds, `d.created_at >= ?`)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, `d.created_at <= ?`)
		args = append(args, *filter.To)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY d.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		var id string
		if err := rows.Scan(&id, &s.ProviderID, &s.Filename, &s.Folio,
			&s.RequiresReview, &s.LineCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("document id %q: %w", id, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ProcessedDocument, error) {
	doc := &entity.ProcessedDocument{ID: id}
	var issueDate sql.NullTime
	var declaredTotal sql.NullString
	var reasons string
	err := r.db.QueryRowContext(ctx,
		`SELECT provider_id, filename, content_hash, folio, folio_fiscal, issuer_rfc,
		        issue_date, declared_total, special_tax, requires_review, review_reasons, created_at
		 FROM documents WHERE id = ?`, id.String()).
		Scan(&doc.ProviderID, &doc.Filename, &doc.ContentHash, &doc.Metadata.Folio,
			&doc.Metadata.FolioFiscal, &doc.Metadata.IssuerRFC, &issueDate,
			&declaredTotal, &doc.Metadata.SpecialTax, &doc.RequiresReview,
			&reasons, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if issueDate.Valid {
		t := issueDate.Time
		doc.Metadata.IssueDate = &t
	}
	if declaredTotal.Valid {
		d, err := decimal.NewFromString(declaredTotal.String)
		if err != nil {
			return nil, fmt.Errorf("declared total: %w", err)
		}
		doc.Metadata.DeclaredTotal = &d
	}
	if err := json.Unmarshal([]byte(reasons), &doc.ReviewReasons); err != nil {
		return nil, fmt.Errorf("review reasons: %w", err)
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

func (r *documentRepository) loadLines(ctx context.Context, docID uuid.UUID) ([]entity.ProcessedLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entry_id, description, quantity, unit_price, line_total,
		        requires_review, findings
		 FROM document_lines WHERE document_id = ? ORDER BY position`, docID.String())
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.ProcessedLine
	for rows.Next() {
		var line entity.ProcessedLine
		var entryID sql.NullInt64
		var qty, price, total sql.NullString
		var findings string
		if err := rows.Scan(&line.ID, &entryID, &line.Description, &qty, &price,
			&total, &line.RequiresReview, &findings); err != nil {
			return nil, err
		}
		if entryID.Valid {
			v := entryID.Int64
			line.EntryID = &v
		}
		if line.Quantity, err = scanDecimal(qty); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = scanDecimal(price); err != nil {
			return nil, err
		}
		if line.LineTotal, err = scanDecimal(total); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(findings), &line.Findings); err != nil {
			return nil, fmt.Errorf("line findings: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *documentRepository) SaveFailure(ctx context.Context, rec entity.FailureRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_failures (document_id, filename, stage, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.DocumentID.String(), rec.Filename, rec.Stage, rec.Detail, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save failure: %w", err)
	}
	return nil
}

func (r *documentRepository) ListFailures(ctx context.Context) ([]entity.FailureRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, filename, stage, detail, created_at
		 FROM document_failures ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []entity.FailureRecord
	for rows.Next() {
		var rec entity.FailureRecord
		var id string
		if err := rows.Scan(&rec.ID, &id, &rec.Filename, &rec.Stage, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.DocumentID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failure document id %q: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("decimal %q: %w", s.String, err)
	}
	return &d, nil
}
