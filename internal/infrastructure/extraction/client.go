package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

const maxAttempts = 3

// Client talks to the external invoice extraction AI service. The
// service takes an invoice image and returns raw line items; everything
// behind its endpoint is a black box.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	log         zerolog.Logger
}

// rawItem is one line item as the extraction service reports it.
type rawItem struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type extractResponse struct {
	Success bool      `json:"success"`
	Items   []rawItem `json:"items"`
	Error   string    `json:"error,omitempty"`
}

// NewClient creates an extraction service client. requestsPerMin bounds
// the outbound request rate; timeout bounds one extraction call.
func NewClient(baseURL string, timeout time.Duration, requestsPerMin int, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerMin <= 0 {
		requestsPerMin = 60
	}

	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), 5)

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		rateLimiter: limiter,
		log:         log,
	}
}

// ExtractItems uploads an invoice image and returns the extracted line
// items. Items without a name or a positive price are dropped, and each
// surviving item gets its normalized name computed once here.
func (c *Client) ExtractItems(ctx context.Context, imagePath string) ([]domain.ScannedItem, error) {
	body, contentType, err := buildUpload(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	endpoint := c.baseURL + "/process-invoice"

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("extraction request error")
			lastErr = err
			sleepBackoff(ctx, attempt)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.log.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Msg("extraction service error")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrExtractionFailed, resp.StatusCode)
			sleepBackoff(ctx, attempt)
			continue
		}

		var extractResp extractResponse
		if err := json.Unmarshal(respBody, &extractResp); err != nil {
			return nil, fmt.Errorf("decode extraction response: %w", err)
		}
		if !extractResp.Success {
			return nil, fmt.Errorf("%w: %s", domain.ErrExtractionFailed, extractResp.Error)
		}

		items := parseItems(extractResp.Items)
		c.log.Info().Int("items", len(items)).Str("imagePath", imagePath).Msg("extracted invoice items")
		return items, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, lastErr)
}

// HealthCheck reports whether the extraction service is reachable and healthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("extraction service health check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// parseItems converts raw extraction output into scanned items,
// dropping unusable rows and filling defaults.
func parseItems(raw []rawItem) []domain.ScannedItem {
	var items []domain.ScannedItem
	for _, r := range raw {
		if r.Name == "" || r.Price <= 0 {
			continue
		}

		quantity := r.Quantity
		if quantity < 1 {
			quantity = 1
		}

		items = append(items, domain.ScannedItem{
			Name:           r.Name,
			NormalizedName: usecase.Normalize(r.Name),
			Price:          r.Price,
			Quantity:       quantity,
			Category:       r.Category,
			Confidence:     r.Confidence,
		})
	}
	return items
}

// buildUpload reads the image and wraps it in a multipart form body.
func buildUpload(imagePath string) ([]byte, string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// sleepBackoff waits before the next retry, scaling linearly with the
// attempt number. Returns early if the context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(attempt*500) * time.Millisecond):
	}
}
