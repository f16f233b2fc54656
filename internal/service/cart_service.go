package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vonomarap/kanokna-sub000/internal/cache"
	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/ports"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
	"github.com/vonomarap/kanokna-sub000/internal/repository"
)

// Config is the tunable surface consumed, not owned, by the cart core.
type Config struct {
	MaxItemQuantity            int
	DefaultCurrency            string
	AllowedProductFamilies     []string
	PriceChangeAckThresholdPct float64
	SnapshotValidity           time.Duration
}

// Owner identifies whose cart an operation targets: exactly one of
// CustomerID (authenticated) or SessionID (anonymous).
type Owner struct {
	CustomerID string
	SessionID  string
}

func (o Owner) valid() bool {
	return (o.CustomerID != "") != (o.SessionID != "")
}

func (o Owner) key() string {
	if o.CustomerID != "" {
		return "customer:" + o.CustomerID
	}
	return "session:" + o.SessionID
}

type CartService struct {
	repo      repository.CartRepository
	snapshots repository.SnapshotStore
	sessions  repository.SessionIndex
	cache     cache.CartCache
	events    publisher.EventPublisher
	catalog   ports.CatalogService
	pricing   ports.PricingService
	cfg       Config
	sfg       singleflight.Group // Prevents cache stampede
	newID     func() string
	now       func() time.Time
}

func NewCartService(
	repo repository.CartRepository,
	snapshots repository.SnapshotStore,
	sessions repository.SessionIndex,
	cartCache cache.CartCache,
	events publisher.EventPublisher,
	catalog ports.CatalogService,
	pricing ports.PricingService,
	cfg Config,
	newID func() string,
) *CartService {
	return &CartService{
		repo:      repo,
		snapshots: snapshots,
		sessions:  sessions,
		cache:     cartCache,
		events:    events,
		catalog:   catalog,
		pricing:   pricing,
		cfg:       cfg,
		newID:     newID,
		now:       time.Now,
	}
}

// GetCart returns the owner's active cart, or a fresh empty cart that is not
// persisted until the first mutation.
func (s *CartService) GetCart(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(owner.key(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, owner.key())
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.load(ctx, owner)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(s.newID(), owner.CustomerID, owner.SessionID, s.now()), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), owner.key(), cart)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) load(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.CustomerID != "" {
		return s.repo.FindByCustomerID(ctx, owner.CustomerID)
	}
	return s.repo.FindBySessionID(ctx, owner.SessionID)
}

// loadOrCreate bypasses the cache: mutations always work on the persisted
// aggregate so the version check has something real to compare against.
func (s *CartService) loadOrCreate(ctx context.Context, owner Owner) (*domain.Cart, error) {
	cart, err := s.load(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(s.newID(), owner.CustomerID, owner.SessionID, s.now()), nil
	}
	return nil, err
}

// persist saves the cart, maintains the session index on first save,
// invalidates the read cache and publishes cart.created when the cart got
// its first version.
func (s *CartService) persist(ctx context.Context, owner Owner, cart *domain.Cart) error {
	created := cart.Version == 0

	if err := s.repo.Save(ctx, cart); err != nil {
		return err
	}

	if created {
		if cart.SessionID != "" {
			if err := s.sessions.StoreCartID(ctx, cart.SessionID, cart.ID); err != nil {
				log.Printf("failed to index session %s -> cart %s: %v", cart.SessionID, cart.ID, err)
			}
		}
		s.events.Publish(ctx, publisher.EventCartCreated, cart.ID, publisher.CartCreatedEvent{
			CartID:     cart.ID,
			CustomerID: cart.CustomerID,
			SessionID:  cart.SessionID,
			CreatedAt:  cart.CreatedAt,
		})
	}

	s.invalidateCache(owner)
	return nil
}

func (s *CartService) invalidateCache(owner Owner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner.key()); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

// AddItemRequest carries everything needed to configure one line item.
type AddItemRequest struct {
	ProductTemplateID string
	ProductName       string
	ProductFamily     string
	WidthMM           int
	HeightMM          int
	SelectedOptions   map[string]string
	BOMLines          []domain.BOMLine
	Quantity          int
}

func (s *CartService) validateAddItemRequest(req AddItemRequest) error {
	if req.ProductTemplateID == "" {
		return ErrMissingProductTemplate
	}
	if req.ProductName == "" {
		return ErrMissingProductName
	}
	if req.Quantity < 1 || req.Quantity > s.cfg.MaxItemQuantity {
		return domain.ErrInvalidQuantity
	}
	for _, family := range s.cfg.AllowedProductFamilies {
		if family == req.ProductFamily {
			return nil
		}
	}
	return ErrUnsupportedProductFamily
}

// AddItem obtains a fresh quote and a catalog verdict for the configuration,
// then appends the item (or bumps the quantity of an identically configured
// one) and persists the cart. An unreachable catalog does not block the add;
// the item just carries UNKNOWN validation status.
func (s *CartService) AddItem(ctx context.Context, owner Owner, req AddItemRequest) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}
	if err := s.validateAddItemRequest(req); err != nil {
		return nil, err
	}

	cart, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	cfg := domain.ConfigurationSnapshot{
		WidthMM:         req.WidthMM,
		HeightMM:        req.HeightMM,
		SelectedOptions: req.SelectedOptions,
		BOMLines:        req.BOMLines,
	}

	quote := s.fetchQuote(ctx, req.ProductTemplateID, cfg)
	if !quote.Available {
		return nil, ErrPricingUnavailable
	}
	if quote.Expired {
		return nil, ErrQuoteExpired
	}

	status := domain.ValidationStatusUnknown
	validation := s.catalog.ValidateConfiguration(ctx, req.ProductTemplateID, cfg)
	if validation.Available {
		if !validation.Valid {
			return nil, &ConfigurationInvalidError{Errors: validation.Errors}
		}
		status = domain.ValidationStatusValid
	}

	item := domain.CartItem{
		ItemID:            s.newID(),
		ProductTemplateID: req.ProductTemplateID,
		ProductName:       req.ProductName,
		ProductFamily:     req.ProductFamily,
		Configuration:     cfg,
		ConfigurationHash: domain.ConfigurationHash(req.ProductTemplateID, req.WidthMM, req.HeightMM, req.SelectedOptions),
		Quantity:          req.Quantity,
		UnitPrice:         quote.UnitPrice,
		Quote:             domain.QuoteReference{QuoteID: quote.QuoteID, ValidUntil: quote.ValidUntil},
		ValidationStatus:  status,
		AddedAt:           s.now(),
	}

	if err := cart.AddItem(item, s.cfg.MaxItemQuantity); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.publishItemEvent(ctx, publisher.EventItemAdded, cart, item.ItemID)
	return cart, nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, owner Owner, itemID string, quantity int) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := cart.UpdateItemQuantity(itemID, quantity, s.cfg.MaxItemQuantity); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.publishItemEvent(ctx, publisher.EventItemUpdated, cart, itemID)
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, owner Owner, itemID string) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	removed, found := cart.FindItem(itemID)
	if !found {
		return nil, domain.ErrItemNotFound
	}

	if err := cart.RemoveItem(itemID); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventItemRemoved, cart.ID, publisher.ItemEvent{
		CartID:        cart.ID,
		ItemID:        removed.ItemID,
		Quantity:      removed.Quantity,
		UnitPrice:     removed.UnitPrice,
		LineTotal:     removed.LineTotal,
		CartTotal:     cart.Totals.Total,
		CartItemCount: cart.Totals.ItemCount,
	})
	return cart, nil
}

// ClearCart empties the cart and drops the promo. Clearing a cart that was
// never persisted, or is already empty, is a no-op.
func (s *CartService) ClearCart(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(s.newID(), owner.CustomerID, owner.SessionID, s.now()), nil
		}
		return nil, err
	}

	if cart.IsEmpty() && cart.AppliedPromo == nil {
		return cart, nil
	}

	removed := len(cart.Items)
	cart.Clear()

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventCartCleared, cart.ID, publisher.CartClearedEvent{
		CartID:       cart.ID,
		ItemsRemoved: removed,
	})
	return cart, nil
}

func (s *CartService) publishItemEvent(ctx context.Context, eventType string, cart *domain.Cart, itemID string) {
	item, found := cart.FindItem(itemID)
	if !found {
		return
	}
	s.events.Publish(ctx, eventType, cart.ID, publisher.ItemEvent{
		CartID:            cart.ID,
		ItemID:            item.ItemID,
		ProductTemplateID: item.ProductTemplateID,
		ProductName:       item.ProductName,
		Quantity:          item.Quantity,
		UnitPrice:         item.UnitPrice,
		LineTotal:         item.LineTotal,
		CartTotal:         cart.Totals.Total,
		CartItemCount:     cart.Totals.ItemCount,
	})
}
