// Package pipeline coordinates the full document flow: text extraction,
// field extraction, vendor dispatch, line-item parsing, catalog resolution,
// validation and reconciliation, ending in one persisted record.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinodex/invoice-reconciler/constants"
	"github.com/vinodex/invoice-reconciler/internal/catalog"
	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/extract"
	"github.com/vinodex/invoice-reconciler/internal/fields"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/parsers"
	"github.com/vinodex/invoice-reconciler/internal/reconcile"
	"github.com/vinodex/invoice-reconciler/internal/repository"
	"github.com/vinodex/invoice-reconciler/internal/validate"
)

// Processor wires the pipeline stages. All collaborators are injected; the
// processor owns no configuration beyond the tolerance set it was built with.
type Processor struct {
	logger    *slog.Logger
	extractor extract.TextExtractor
	registry  *parsers.Registry
	catalog   repository.CatalogRepository
	documents repository.DocumentRepository
	ledger    *ledger.Service
	validator *validate.Validator
	tol       common.Tolerances
}

func NewProcessor(
	logger *slog.Logger,
	extractor extract.TextExtractor,
	registry *parsers.Registry,
	catalogRepo repository.CatalogRepository,
	documentRepo repository.DocumentRepository,
	ledgerSvc *ledger.Service,
	tol common.Tolerances,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		registry:  registry,
		catalog:   catalogRepo,
		documents: documentRepo,
		ledger:    ledgerSvc,
		validator: validate.New(validatorConfig(tol), logger),
		tol:       tol,
	}
}

func validatorConfig(tol common.Tolerances) validate.Config {
	cfg := validate.DefaultConfig()
	cfg.ArithmeticTolerancePct = tol.ArithmeticTolerancePct
	cfg.TruncationLengths = tol.TruncationLengths
	for provider, band := range tol.PriceGuardianBands {
		cfg.PriceBands[provider] = validate.PriceBand{UpperPct: band.UpperPct, LowerPct: band.LowerPct}
	}
	return cfg
}

// Process runs one raw document through every stage. Terminal failures are
// recorded as failure records with the stage that aborted; a duplicate
// content hash returns common.ErrDuplicateDocument before any work.
func (p *Processor) Process(ctx context.Context, doc entity.RawDocument) (*entity.ProcessedDocument, error) {
	sum := sha256.Sum256(doc.Content)
	hash := hex.EncodeToString(sum[:])

	exists, err := p.documents.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("hash lookup: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", doc.Filename, common.ErrDuplicateDocument)
	}

	started := time.Now()
	text, err := p.extractor.Extract(ctx, doc.Content)
	if err != nil {
		return nil, p.fail(ctx, doc, constants.FailureStageExtract, err)
	}
	p.logger.Info("text extracted",
		"document_id", doc.ID,
		"pages", text.Pages,
		"lines", len(text.Lines),
		"method", text.Method)

	meta := fields.Metadata(text.Lines, p.logger)

	parser, err := p.registry.Select(text.Lines)
	if err != nil {
		return nil, p.fail(ctx, doc, constants.FailureStageDispatch, err)
	}
	providerID := parser.Vendor()

	parsedMeta, items, err := parser.Parse(text.Lines)
	var anchorErr *parsers.AnchorMissingError
	var extraReasons []string
	if errors.As(err, &anchorErr) {
		// A missing segmentation anchor degrades to zero line items with a
		// document-level reason; the record is still persisted.
		p.logger.Warn("segmentation anchor missing",
			"document_id", doc.ID,
			"provider", providerID,
			"anchor", anchorErr.Anchor)
		items = nil
		extraReasons = append(extraReasons, err.Error())
	} else if err != nil {
		return nil, p.fail(ctx, doc, constants.FailureStageParse, err)
	}
	mergeMetadata(&meta, parsedMeta)
	p.logger.Info("document parsed",
		"document_id", doc.ID,
		"provider", providerID,
		"items", len(items))

	resolver, err := p.loadResolver(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	lines := make([]reconcile.LineResult, 0, len(items))
	for _, item := range items {
		outcome := resolver.Resolve(item.Description)
		findings := p.validator.Validate(item, outcome, providerID)
		lines = append(lines, reconcile.LineResult{
			Item:     item,
			Outcome:  outcome,
			Findings: findings,
		})
		if outcome.Status != entity.ResolutionResolved {
			if _, err := p.ledger.Record(ctx, doc.ID, item); err != nil {
				return nil, p.fail(ctx, doc, constants.FailureStagePersist, err)
			}
		}
	}

	disp := reconcile.Reconcile(reconcile.Input{
		DeclaredTotal: meta.DeclaredTotal,
		SpecialTax:    meta.SpecialTax,
		Lines:         lines,
	}, p.tol.DocumentTotalTolerancePct)
	if len(extraReasons) > 0 {
		disp.RequiresReview = true
		disp.Reasons = append(extraReasons, disp.Reasons...)
	}

	processed := &entity.ProcessedDocument{
		ID:             doc.ID,
		ProviderID:     providerID,
		Filename:       doc.Filename,
		ContentHash:    hash,
		Metadata:       meta,
		Lines:          toProcessedLines(lines),
		RequiresReview: disp.RequiresReview,
		ReviewReasons:  disp.Reasons,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.documents.Save(ctx, processed); err != nil {
		return nil, p.fail(ctx, doc, constants.FailureStagePersist, err)
	}

	p.logger.Info("document processed",
		"document_id", doc.ID,
		"provider", providerID,
		"lines", len(processed.Lines),
		"requires_review", processed.RequiresReview,
		"duration", time.Since(started))
	return processed, nil
}

// fail records the aborting stage and returns the original error wrapped with
// stage context. Failure records never carry partial financial data.
func (p *Processor) fail(ctx context.Context, doc entity.RawDocument, stage constants.FailureStage, cause error) error {
	rec := entity.FailureRecord{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Stage:      string(stage),
		Detail:     cause.Error(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.documents.SaveFailure(ctx, rec); err != nil {
		p.logger.Error("failure record not persisted",
			"document_id", doc.ID,
			"stage", stage,
			"err", err)
	}
	p.logger.Error("document aborted",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"stage", stage,
		"err", cause)
	return fmt.Errorf("%s stage: %w", stage, cause)
}

func (p *Processor) loadResolver(ctx context.Context) (*catalog.Resolver, error) {
	entries, err := p.catalog.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	aliases, err := p.catalog.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewResolver(entries, aliases), nil
}

// mergeMetadata fills gaps in the field-extractor metadata with values the
// vendor parser read from its known layout. The anchored extractors win when
// both found a value.
func mergeMetadata(dst *entity.DocumentMetadata, src entity.DocumentMetadata) {
	if dst.Folio == "" {
		dst.Folio = src.Folio
	}
	if dst.FolioFiscal == "" {
		dst.FolioFiscal = src.FolioFiscal
	}
	if dst.IssuerRFC == "" {
		dst.IssuerRFC = src.IssuerRFC
	}
	if dst.IssueDate == nil {
		dst.IssueDate = src.IssueDate
	}
	if dst.DeclaredTotal == nil {
		dst.DeclaredTotal = src.DeclaredTotal
	}
	dst.SpecialTax = dst.SpecialTax || src.SpecialTax
}

func toProcessedLines(lines []reconcile.LineResult) []entity.ProcessedLine {
	out := make([]entity.ProcessedLine, 0, len(lines))
	for _, line := range lines {
		pl := entity.ProcessedLine{
			Description:    line.Item.Description,
			Quantity:       line.Item.Quantity,
			UnitPrice:      line.Item.UnitPrice,
			LineTotal:      line.Item.LineTotal,
			RequiresReview: line.RequiresReview,
			Findings:       line.Findings,
		}
		if line.Outcome.Status == entity.ResolutionResolved && line.Outcome.Entry != nil {
			id := line.Outcome.Entry.ID
			pl.EntryID = &id
		}
		out = append(out, pl)
	}
	return out
}

// IsDuplicate reports whether err is the duplicate-document sentinel.
func IsDuplicate(err error) bool {
	return errors.Is(err, common.ErrDuplicateDocument)
}
