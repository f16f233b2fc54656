package service

import (
	"context"
	"fmt"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

type ItemValidation struct {
	ItemID string
	Status domain.ValidationStatus
	Errors []string
}

// ValidationReport aggregates a per-item revalidation pass. UNKNOWN counts
// items the catalog could not be reached for; whether UNKNOWN blocks anything
// is the caller's decision (it blocks checkout, not reads).
type ValidationReport struct {
	ValidCount   int
	InvalidCount int
	UnknownCount int
	Items        []ItemValidation
}

func (r *ValidationReport) allValid() bool {
	return r.InvalidCount == 0 && r.UnknownCount == 0
}

// blockingItemIDs lists items that keep a checkout from proceeding.
func (r *ValidationReport) blockingItemIDs() []string {
	var ids []string
	for _, item := range r.Items {
		if item.Status != domain.ValidationStatusValid {
			ids = append(ids, item.ItemID)
		}
	}
	return ids
}

// revalidateItems asks the catalog about every item's configuration and
// records the verdicts on the aggregate.
func (s *CartService) revalidateItems(ctx context.Context, cart *domain.Cart) *ValidationReport {
	report := &ValidationReport{}

	for _, item := range cart.Items {
		verdict := s.catalog.ValidateConfiguration(ctx, item.ProductTemplateID, item.Configuration)

		entry := ItemValidation{ItemID: item.ItemID}
		switch {
		case !verdict.Available:
			entry.Status = domain.ValidationStatusUnknown
			report.UnknownCount++
		case verdict.Valid:
			entry.Status = domain.ValidationStatusValid
			report.ValidCount++
		default:
			entry.Status = domain.ValidationStatusInvalid
			entry.Errors = verdict.Errors
			report.InvalidCount++
		}

		cart.SetItemValidationStatus(item.ItemID, entry.Status)
		report.Items = append(report.Items, entry)
	}

	return report
}

// RevalidateCart runs a lazy on-read revalidation: statuses are recorded and
// reported but nothing is blocked, even when the catalog is unreachable.
func (s *CartService) RevalidateCart(ctx context.Context, owner Owner) (*ValidationReport, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return &ValidationReport{}, nil
	}

	report := s.revalidateItems(ctx, cart)

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	return report, nil
}
