package billing

import (
	"context"
	"fmt"
	"time"

	"atelier-commission/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Customer billing-side customer record.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InvoiceDraft billing-side invoice draft.
type InvoiceDraft struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client talks to the billing provider's REST API. All failures are tagged
// domain.ErrExternalService so the saga can classify them as retryable.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates the billing client. Requests authenticate with a bearer
// API key; the connected account an operation acts on is passed per call.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// CreateCustomer creates a customer record on the artist's connected account.
// The provider allows duplicate creation for the same person; dedup is the
// caller's job via the customer_bindings unique key.
func (c *Client) CreateCustomer(ctx context.Context, account, name, email string) (*Customer, error) {
	var (
		customer Customer
		apiErr   apiError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Payment-Account", account).
		SetBody(map[string]string{"name": name, "email": email}).
		SetResult(&customer).
		SetError(&apiErr).
		Post("/v1/customers")
	if err != nil {
		return nil, fmt.Errorf("failed to create billing customer: %w: %w", err, domain.ErrExternalService)
	}
	if resp.IsError() {
		c.logger.Error("Billing API rejected customer creation",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return nil, fmt.Errorf("billing customer creation failed (%d %s): %w",
			resp.StatusCode(), apiErr.Code, domain.ErrExternalService)
	}

	c.logger.Info("Created billing customer",
		zap.String("customer_id", customer.ID),
		zap.String("account", account),
	)
	return &customer, nil
}

// CreateInvoiceDraft drafts an invoice for the customer on the artist's
// connected account. Metadata carries the request correlation ids.
func (c *Client) CreateInvoiceDraft(ctx context.Context, account, customerID string, metadata map[string]string) (*InvoiceDraft, error) {
	var (
		draft  InvoiceDraft
		apiErr apiError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Payment-Account", account).
		SetBody(map[string]any{
			"customer_id": customerID,
			"auto_send":   false,
			"metadata":    metadata,
		}).
		SetResult(&draft).
		SetError(&apiErr).
		Post("/v1/invoices")
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice draft: %w: %w", err, domain.ErrExternalService)
	}
	if resp.IsError() {
		c.logger.Error("Billing API rejected invoice draft",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return nil, fmt.Errorf("invoice draft creation failed (%d %s): %w",
			resp.StatusCode(), apiErr.Code, domain.ErrExternalService)
	}

	c.logger.Info("Created invoice draft",
		zap.String("billing_invoice_id", draft.ID),
		zap.String("customer_id", customerID),
	)
	return &draft, nil
}
