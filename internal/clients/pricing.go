package clients

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/ports"
)

// PricingClient talks to the pricing capability over HTTP. Quote and promo
// calls share one circuit breaker since they hit the same upstream.
type PricingClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

type calculateQuoteRequest struct {
	ProductTemplateID string            `json:"product_template_id"`
	WidthMM           int               `json:"width_mm"`
	HeightMM          int               `json:"height_mm"`
	SelectedOptions   map[string]string `json:"selected_options"`
	Currency          string            `json:"currency"`
}

type calculateQuoteResponse struct {
	QuoteID    string    `json:"quote_id"`
	UnitPrice  int64     `json:"unit_price"`
	ValidUntil time.Time `json:"valid_until"`
}

type validatePromoRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

type validatePromoResponse struct {
	Valid          bool   `json:"valid"`
	DiscountAmount int64  `json:"discount_amount"`
	Description    string `json:"description"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
}

func NewPricingClient(baseURL string, timeout time.Duration) *PricingClient {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "pricing-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &PricingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (c *PricingClient) CalculateQuote(ctx context.Context, productTemplateID string, cfg domain.ConfigurationSnapshot, currency string) ports.Quote {
	req := calculateQuoteRequest{
		ProductTemplateID: productTemplateID,
		WidthMM:           cfg.WidthMM,
		HeightMM:          cfg.HeightMM,
		SelectedOptions:   cfg.SelectedOptions,
		Currency:          currency,
	}

	var resp calculateQuoteResponse
	if err := c.post(ctx, "/v1/quotes", req, &resp); err != nil {
		log.Printf("pricing quote unavailable for template %s: %v", productTemplateID, err)
		return ports.Quote{Available: false}
	}

	return ports.Quote{
		Available:  true,
		QuoteID:    resp.QuoteID,
		UnitPrice:  resp.UnitPrice,
		ValidUntil: resp.ValidUntil,
	}
}

func (c *PricingClient) ValidatePromoCode(ctx context.Context, code string, subtotal int64) ports.PromoValidation {
	req := validatePromoRequest{Code: code, Subtotal: subtotal}

	var resp validatePromoResponse
	if err := c.post(ctx, "/v1/promo-codes/validate", req, &resp); err != nil {
		log.Printf("promo validation unavailable for code %s: %v", code, err)
		return ports.PromoValidation{Available: false}
	}

	return ports.PromoValidation{
		Available:      true,
		Valid:          resp.Valid,
		DiscountAmount: resp.DiscountAmount,
		Description:    resp.Description,
		ErrorCode:      resp.ErrorCode,
		ErrorMessage:   resp.ErrorMessage,
	}
}

func (c *PricingClient) post(ctx context.Context, path string, req, out any) error {
	_, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, postJSON(ctx, c.client, c.baseURL+path, req, out)
	})
	return err
}
