package refcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bandstand/internal/catalog"
	"bandstand/internal/library"
	"bandstand/internal/logging"
	"bandstand/internal/matching"
	"bandstand/internal/provenance"
	"bandstand/internal/services"
)

// pageMarkers are the catalog-page phrases that betray a stale or wrong
// reference: disambiguation hubs, placeholders, soft 404 pages.
var pageMarkers = []struct {
	marker string
	reason string
}{
	{"may refer to", "disambiguation page"},
	{"disambiguation", "disambiguation page"},
	{"page not found", "page removed"},
	{"does not exist", "page removed"},
	{"no longer available", "page removed"},
	{"this entry has been merged", "entry merged away"},
}

// Verdict is the outcome of one reference check.
type Verdict struct {
	RefID       int64
	Valid       bool
	Confidence  matching.Tier
	Reason      string
	Unavailable bool
}

// Checker validates stored external references against their catalog pages.
// Verify never removes anything; only Purge deletes, and it re-verifies
// first.
type Checker struct {
	store    *library.Store
	fields   *provenance.Store
	fetchers map[string]catalog.PageFetcher
	logger   *slog.Logger
}

// New creates a checker. Fetchers are registered per catalog; references in
// catalogs without a fetcher fail verification with a configuration error.
func New(store *library.Store, fields *provenance.Store, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{
		store:    store,
		fields:   fields,
		fetchers: make(map[string]catalog.PageFetcher),
		logger:   logger.With(logging.String(logging.FieldComponent, "refcheck")),
	}
}

// RegisterFetcher wires the page fetcher for one catalog.
func (c *Checker) RegisterFetcher(catalogName string, fetcher catalog.PageFetcher) {
	c.fetchers[catalogName] = fetcher
}

// Verify checks whether a stored reference still points at a live,
// unambiguous catalog page. The stored reference is never modified beyond
// its verification timestamp, whatever the verdict.
func (c *Checker) Verify(ctx context.Context, ref *library.ExternalRef) (*Verdict, error) {
	if ref == nil {
		return nil, services.Wrap(services.ErrValidation, "refcheck", "verify", "nil reference", nil)
	}
	fetcher, ok := c.fetchers[ref.Catalog]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "refcheck", "verify",
			fmt.Sprintf("no page fetcher for catalog %q", ref.Catalog), nil)
	}

	page, err := fetcher.FetchPage(ctx, ref.ExternalID)
	if err != nil {
		if errors.Is(err, services.ErrExternalUnavailable) {
			c.logger.Warn("catalog unavailable during verification",
				logging.Int64("ref_id", ref.ID),
				logging.String(logging.FieldCatalog, ref.Catalog),
				logging.Error(err))
			// Unknown is not invalid: keep the reference and let the
			// caller retry later.
			return &Verdict{
				RefID:       ref.ID,
				Valid:       true,
				Confidence:  matching.TierLow,
				Reason:      "catalog unavailable, validity unknown",
				Unavailable: true,
			}, nil
		}
		return nil, err
	}

	pageLower := strings.ToLower(page)
	for _, entry := range pageMarkers {
		if strings.Contains(pageLower, entry.marker) {
			verdict := &Verdict{
				RefID:      ref.ID,
				Valid:      false,
				Confidence: matching.TierHigh,
				Reason:     fmt.Sprintf("%s (marker %q)", entry.reason, entry.marker),
			}
			c.logger.Info("reference failed verification",
				logging.Int64("ref_id", ref.ID),
				logging.String(logging.FieldCatalog, ref.Catalog),
				logging.String("reason", verdict.Reason))
			return verdict, nil
		}
	}

	verdict := &Verdict{RefID: ref.ID, Valid: true, Confidence: matching.TierMedium, Reason: "no stale markers found"}
	if name, err := c.entityName(ctx, ref); err == nil && name != "" {
		if key := matching.FoldKey(name); key != "" && strings.Contains(matching.FoldKey(page), key) {
			verdict.Confidence = matching.TierHigh
			verdict.Reason = "entity name present on page"
		} else {
			verdict.Reason = "no stale markers, entity name not located on page"
		}
	}

	if err := c.store.MarkRefVerified(ctx, ref.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return verdict, nil
}

// VerifyByID looks a reference up and verifies it.
func (c *Checker) VerifyByID(ctx context.Context, refID int64) (*Verdict, error) {
	ref, err := c.store.GetRef(ctx, refID)
	if err != nil {
		return nil, err
	}
	return c.Verify(ctx, ref)
}

// VerifyCatalog verifies every stored reference of one catalog (or all
// catalogs when catalogName is empty) and returns the verdicts. Unavailable
// catalogs stop the sweep so a dead service doesn't burn the whole list.
func (c *Checker) VerifyCatalog(ctx context.Context, catalogName string) ([]*Verdict, error) {
	refs, err := c.store.ListRefs(ctx, catalogName)
	if err != nil {
		return nil, err
	}
	verdicts := make([]*Verdict, 0, len(refs))
	for _, ref := range refs {
		if _, ok := c.fetchers[ref.Catalog]; !ok {
			continue
		}
		verdict, err := c.Verify(ctx, ref)
		if err != nil {
			return verdicts, err
		}
		verdicts = append(verdicts, verdict)
		if verdict.Unavailable {
			break
		}
	}
	return verdicts, nil
}

// Purge re-verifies a reference and deletes it only when the check comes
// back invalid. This is the single destructive path in the validator.
func (c *Checker) Purge(ctx context.Context, refID int64) (bool, *Verdict, error) {
	ref, err := c.store.GetRef(ctx, refID)
	if err != nil {
		return false, nil, err
	}
	verdict, err := c.Verify(ctx, ref)
	if err != nil {
		return false, nil, err
	}
	if verdict.Valid || verdict.Unavailable {
		return false, verdict, nil
	}
	if err := c.store.DeleteRef(ctx, ref.ID); err != nil {
		return false, verdict, err
	}
	c.logger.Info("purged invalid reference",
		logging.Int64("ref_id", ref.ID),
		logging.String(logging.FieldCatalog, ref.Catalog),
		logging.String("reason", verdict.Reason))
	return true, verdict, nil
}

func (c *Checker) entityName(ctx context.Context, ref *library.ExternalRef) (string, error) {
	field := "title"
	if ref.EntityType == library.EntityPerformer {
		field = "name"
	}
	value, ok, err := c.fields.Computed(ctx, ref.EntityType, ref.EntityID, field)
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}
