package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/ports"
)

// CatalogClient talks to the catalog capability over HTTP. All failures
// (transport errors, 5xx, open circuit breaker) collapse into
// Available=false; only a reachable catalog can declare a configuration
// invalid.
type CatalogClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[validateConfigurationResponse]
}

type validateConfigurationRequest struct {
	ProductTemplateID string            `json:"product_template_id"`
	WidthMM           int               `json:"width_mm"`
	HeightMM          int               `json:"height_mm"`
	SelectedOptions   map[string]string `json:"selected_options"`
}

type validateConfigurationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	breaker := gobreaker.NewCircuitBreaker[validateConfigurationResponse](gobreaker.Settings{
		Name:    "catalog-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (c *CatalogClient) ValidateConfiguration(ctx context.Context, productTemplateID string, cfg domain.ConfigurationSnapshot) ports.ConfigValidation {
	req := validateConfigurationRequest{
		ProductTemplateID: productTemplateID,
		WidthMM:           cfg.WidthMM,
		HeightMM:          cfg.HeightMM,
		SelectedOptions:   cfg.SelectedOptions,
	}

	resp, err := c.breaker.Execute(func() (validateConfigurationResponse, error) {
		var out validateConfigurationResponse
		err := postJSON(ctx, c.client, c.baseURL+"/v1/configurations/validate", req, &out)
		return out, err
	})
	if err != nil {
		log.Printf("catalog validate unavailable for template %s: %v", productTemplateID, err)
		return ports.ConfigValidation{Available: false}
	}

	return ports.ConfigValidation{
		Available: true,
		Valid:     resp.Valid,
		Errors:    resp.Errors,
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
