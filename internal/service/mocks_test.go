package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vonomarap/kanokna-sub000/internal/cache"
	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/ports"
	"github.com/vonomarap/kanokna-sub000/internal/repository"
)

type mockCartRepo struct {
	m           sync.Mutex
	carts       map[string]*domain.Cart
	saveErr     error
	saveBothErr error
	saveCalls   int
	savedBoth   bool
}

func newMockCartRepo(carts ...*domain.Cart) *mockCartRepo {
	repo := &mockCartRepo{carts: map[string]*domain.Cart{}}
	for _, cart := range carts {
		repo.carts[cart.ID] = cart
	}
	return repo
}

func (m *mockCartRepo) FindByID(_ context.Context, cartID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if cart, ok := m.carts[cartID]; ok {
		return cart, nil
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepo) FindByCustomerID(_ context.Context, customerID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, cart := range m.carts {
		if cart.CustomerID == customerID && cart.Status == domain.CartStatusActive {
			return cart, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, cart := range m.carts {
		if cart.SessionID == sessionID && cart.Status == domain.CartStatusActive {
			return cart, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepo) Save(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	cart.Version++
	m.carts[cart.ID] = cart
	return nil
}

func (m *mockCartRepo) SaveBoth(_ context.Context, target, source *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveBothErr != nil {
		return m.saveBothErr
	}
	target.Version++
	source.Version++
	m.carts[target.ID] = target
	m.carts[source.ID] = source
	m.savedBoth = true
	return nil
}

type mockSnapshotStore struct {
	saved   []*domain.CartSnapshot
	deleted []string
	saveErr error
}

func (m *mockSnapshotStore) Save(_ context.Context, snapshot *domain.CartSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snapshot)
	return nil
}

func (m *mockSnapshotStore) FindByID(_ context.Context, snapshotID string) (*domain.CartSnapshot, error) {
	for _, snapshot := range m.saved {
		if snapshot.SnapshotID == snapshotID {
			return snapshot, nil
		}
	}
	return nil, repository.ErrSnapshotNotFound
}

func (m *mockSnapshotStore) Delete(_ context.Context, snapshotID string) error {
	m.deleted = append(m.deleted, snapshotID)
	return nil
}

func (m *mockSnapshotStore) Close() error { return nil }

type mockSessionIndex struct {
	m       sync.Mutex
	entries map[string]string
}

func newMockSessionIndex() *mockSessionIndex {
	return &mockSessionIndex{entries: map[string]string{}}
}

func (m *mockSessionIndex) StoreCartID(_ context.Context, sessionID, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.entries[sessionID] = cartID
	return nil
}

func (m *mockSessionIndex) GetCartID(_ context.Context, sessionID string) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if cartID, ok := m.entries[sessionID]; ok {
		return cartID, nil
	}
	return "", repository.ErrSessionNotIndexed
}

func (m *mockSessionIndex) RemoveCartID(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.entries, sessionID)
	return nil
}

type mockCache struct {
	m       sync.Mutex
	cart    *domain.Cart
	deletes int
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.deletes++
	return nil
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	return m.cart
}

type publishedEvent struct {
	eventType string
	cartID    string
	payload   any
}

type mockPublisher struct {
	m      sync.Mutex
	events []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, eventType, cartID string, payload any) {
	m.m.Lock()
	defer m.m.Unlock()
	m.events = append(m.events, publishedEvent{eventType, cartID, payload})
}

func (m *mockPublisher) types() []string {
	m.m.Lock()
	defer m.m.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.eventType
	}
	return types
}

type mockCatalog struct {
	// verdicts by template id; templates not present validate fine
	verdicts map[string]ports.ConfigValidation
	calls    int
}

func (m *mockCatalog) ValidateConfiguration(_ context.Context, productTemplateID string, _ domain.ConfigurationSnapshot) ports.ConfigValidation {
	m.calls++
	if verdict, ok := m.verdicts[productTemplateID]; ok {
		return verdict
	}
	return ports.ConfigValidation{Available: true, Valid: true}
}

type mockPricing struct {
	// quotes by template id; templates not present are unavailable
	quotes     map[string]ports.Quote
	promo      ports.PromoValidation
	promoCalls int
}

func (m *mockPricing) CalculateQuote(_ context.Context, productTemplateID string, _ domain.ConfigurationSnapshot, _ string) ports.Quote {
	if quote, ok := m.quotes[productTemplateID]; ok {
		return quote
	}
	return ports.Quote{Available: false}
}

func (m *mockPricing) ValidatePromoCode(_ context.Context, _ string, _ int64) ports.PromoValidation {
	m.promoCalls++
	return m.promo
}

type testEnv struct {
	repo      *mockCartRepo
	snapshots *mockSnapshotStore
	sessions  *mockSessionIndex
	cache     *mockCache
	events    *mockPublisher
	catalog   *mockCatalog
	pricing   *mockPricing
}

func newTestService(carts ...*domain.Cart) (*CartService, *testEnv) {
	env := &testEnv{
		repo:      newMockCartRepo(carts...),
		snapshots: &mockSnapshotStore{},
		sessions:  newMockSessionIndex(),
		cache:     &mockCache{},
		events:    &mockPublisher{},
		catalog:   &mockCatalog{verdicts: map[string]ports.ConfigValidation{}},
		pricing:   &mockPricing{quotes: map[string]ports.Quote{}},
	}

	counter := 0
	newID := func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}

	sut := NewCartService(
		env.repo, env.snapshots, env.sessions, env.cache, env.events,
		env.catalog, env.pricing,
		Config{
			MaxItemQuantity:            99,
			DefaultCurrency:            "EUR",
			AllowedProductFamilies:     []string{"WINDOW", "DOOR"},
			PriceChangeAckThresholdPct: 2.0,
			SnapshotValidity:           15 * time.Minute,
		},
		newID,
	)
	return sut, env
}

func freshQuote(id string, price int64) ports.Quote {
	return ports.Quote{
		Available:  true,
		QuoteID:    id,
		UnitPrice:  price,
		ValidUntil: time.Now().Add(time.Hour),
	}
}

func activeCart(id, customerID, sessionID string) *domain.Cart {
	cart := domain.NewCart(id, customerID, sessionID, time.Now())
	cart.Version = 1
	return cart
}

func cartItem(id, templateID, hash string, price int64, qty int) domain.CartItem {
	return domain.CartItem{
		ItemID:            id,
		ProductTemplateID: templateID,
		ProductName:       "Tilt window",
		ProductFamily:     "WINDOW",
		ConfigurationHash: hash,
		Quantity:          qty,
		UnitPrice:         price,
		LineTotal:         price * int64(qty),
		Quote:             domain.QuoteReference{QuoteID: "q-" + id, ValidUntil: time.Now().Add(time.Hour)},
		ValidationStatus:  domain.ValidationStatusValid,
	}
}
