package fields

import (
	"log/slog"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/utils"
)

// Metadata runs every document-level extractor and tolerates per-field
// absence: a missing field stays zero-valued and the pipeline continues.
// Uncertainty is data here, not failure.
func Metadata(lines []string, log *slog.Logger) entity.DocumentMetadata {
	if log == nil {
		log = slog.Default()
	}
	var md entity.DocumentMetadata

	if v, err := Folio(lines); err == nil {
		md.Folio = v
	} else {
		log.Debug("fields.metadata", "missing", "folio")
	}
	if v, err := FolioFiscal(lines); err == nil {
		md.FolioFiscal = v
	} else {
		log.Debug("fields.metadata", "missing", "folio_fiscal")
	}
	if v, err := IssuerRFC(lines); err == nil {
		md.IssuerRFC = v
	} else {
		log.Debug("fields.metadata", "missing", "rfc")
	}
	if t, err := IssueDate(lines); err == nil {
		md.IssueDate = &t
	} else {
		log.Debug("fields.metadata", "missing", "issue_date")
	}
	if v, err := Total(lines); err == nil {
		md.DeclaredTotal = utils.DecPtr(v)
	} else {
		log.Debug("fields.metadata", "missing", "total")
	}
	md.SpecialTax = HasSpecialTax(lines)

	return md
}
