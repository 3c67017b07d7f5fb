package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one known product. canonical_name is unique under
// case/diacritic-insensitive comparison within the active catalog; the
// resolver depends on that.
type CatalogEntry struct {
	ID             int64           `json:"id"`
	CanonicalName  string          `json:"canonical_name"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	ProviderRef    string          `json:"provider_ref"`
	Stock          int64           `json:"stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CatalogAlias maps a detected description to a catalog entry. alias_text must
// not collide (case-insensitively) with the canonical name of a different
// entry; callers enforce this before persisting.
type CatalogAlias struct {
	ID        int64     `json:"id"`
	AliasText string    `json:"alias_text"`
	EntryID   int64     `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}
