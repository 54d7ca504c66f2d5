package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

var razorpayTracer = otel.Tracer("hospital.internal.payments.razorpay")

// OrderRequest asks the gateway for a new order. Amounts are in paise.
type OrderRequest struct {
	AmountPaise int64
	Currency    string
	Receipt     string
}

// Order is the subset of a Razorpay order the booking flow needs.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RazorpayClient creates orders over the Razorpay REST API and verifies
// checkout signatures.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

func NewRazorpayClient(keyID, keySecret string, logger *logging.Logger) *RazorpayClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &RazorpayClient{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    "https://api.razorpay.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (c *RazorpayClient) WithBaseURL(baseURL string) *RazorpayClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun returns fake orders without calling Razorpay.
func (c *RazorpayClient) WithDryRun(enabled bool) *RazorpayClient {
	c.dryRun = enabled
	return c
}

// KeyID is the public key the checkout widget needs.
func (c *RazorpayClient) KeyID() string { return c.keyID }

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	ctx, span := razorpayTracer.Start(ctx, "razorpay.create_order")
	defer span.End()
	span.SetAttributes(attribute.Int64("hospital.amount_paise", req.AmountPaise))

	if req.Currency == "" {
		req.Currency = "INR"
	}
	if c.dryRun {
		id := "order_dryrun_" + uuid.NewString()[:8]
		c.logger.Info("razorpay dry run: skipping order creation", "order_id", id, "amount_paise", req.AmountPaise)
		return &Order{ID: id, Amount: req.AmountPaise, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
	}

	payload, err := json.Marshal(map[string]any{
		"amount":          req.AmountPaise,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("payments: razorpay encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("payments: razorpay request: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, readRazorpayError(resp.StatusCode, resp.Body))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("payments: razorpay decode: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("payments: razorpay response missing order id")
	}
	return &order, nil
}

// VerifySignature checks the checkout callback signature, which is
// HMAC-SHA256("<order_id>|<payment_id>") keyed with the key secret.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	return verifySignature(c.keySecret, orderID, paymentID, signature)
}

func verifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func readRazorpayError(status int, body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed razorpayErrorResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Description != "" {
		return fmt.Sprintf("status %d %s: %s", status, parsed.Error.Code, parsed.Error.Description)
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(data)))
}
