package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-payments/internal/config"
	"storefront-payments/internal/metrics"

	"github.com/cenkalti/backoff/v4"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type PaystackClient interface {
	// InitializeTransaction opens a new transaction; the gateway generates the reference.
	InitializeTransaction(ctx context.Context, req *InitializeTransactionRequest) (*InitializeTransactionResponse, error)
	RefundTransaction(ctx context.Context, reference string) (string, error)
	// VerifyWebhookSignature checks the HMAC-SHA512 hex digest of the untouched raw body.
	VerifyWebhookSignature(body []byte, signature string) error
}

type InitializeTransactionRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
}

type InitializeTransactionResponse struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// APIError is a non-2xx answer (or status=false body) from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Option func(*paystackClientImpl)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *paystackClientImpl) { c.httpClient = hc }
}

// WithBackOff overrides the retry schedule used for transient gateway failures.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *paystackClientImpl) { c.newBackOff = newBackOff }
}

type paystackClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func NewPaystackClient(cfg *config.Paystack, opts ...Option) PaystackClient {
	c := &paystackClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		secretKey:  cfg.SecretKey,
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *paystackClientImpl) InitializeTransaction(ctx context.Context, req *InitializeTransactionRequest) (*InitializeTransactionResponse, error) {
	payload := map[string]string{
		"email":    req.Email,
		"amount":   strconv.FormatInt(req.AmountMinor, 10),
		"currency": req.Currency,
	}

	data, err := c.postWithRetry(ctx, "initialize", "/transaction/initialize", payload)
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}

	var result paystackInitializeData
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if result.Reference == "" {
		return nil, errors.New("initialize transaction: gateway returned no reference")
	}

	return &InitializeTransactionResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
	}, nil
}

func (c *paystackClientImpl) RefundTransaction(ctx context.Context, reference string) (string, error) {
	payload := map[string]string{
		"transaction": reference,
	}

	_, msg, err := c.post(ctx, "/refund", payload)
	metrics.ObserveGatewayCall("refund", err)
	if err != nil {
		return "", fmt.Errorf("refund transaction: %w", err)
	}
	return msg, nil
}

func (c *paystackClientImpl) VerifyWebhookSignature(body []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *paystackClientImpl) postWithRetry(ctx context.Context, op, path string, payload any) (json.RawMessage, error) {
	attempt := func() (json.RawMessage, error) {
		data, _, err := c.post(ctx, path, payload)
		metrics.ObserveGatewayCall(op, err)
		if err == nil {
			return data, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.RetryWithData(attempt, b)
}

func (c *paystackClientImpl) post(ctx context.Context, path string, payload any) (json.RawMessage, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read paystack response: %w", err)
	}

	var env paystackEnvelope
	decodeErr := json.Unmarshal(b, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(b)
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, "", fmt.Errorf("decode paystack response: %w", decodeErr)
	}
	if !env.Status {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	return env.Data, env.Message, nil
}
