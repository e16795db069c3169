package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forte001/GraceCoop/internal/domain/payment"
)

const defaultBaseURL = "https://api.paystack.co"

// PaystackVerifier talks to Paystack's transaction verify endpoint.
type PaystackVerifier struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackVerifier(baseURL, secretKey string) *PaystackVerifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &PaystackVerifier{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

func (v *PaystackVerifier) VerifyTransaction(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", v.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+v.secretKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &payment.VerifyResult{Status: payment.VerificationFailed, Reference: reference}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify: unexpected status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("paystack verify decode: %w", err)
	}

	ref := body.Data.Reference
	if ref == "" {
		ref = reference
	}

	switch body.Data.Status {
	case "success":
		return &payment.VerifyResult{Status: payment.VerificationSuccess, Reference: ref}, nil
	case "pending", "ongoing", "processing", "queued":
		return &payment.VerifyResult{Status: payment.VerificationPending, Reference: ref}, nil
	default:
		return &payment.VerifyResult{Status: payment.VerificationFailed, Reference: ref}, nil
	}
}
