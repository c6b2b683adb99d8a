package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrGatewayTimeout means the gateway call did not come back in time. The
// charge may still have gone through remotely; callers must treat this as
// indeterminate, never as a rejection.
var ErrGatewayTimeout = errors.New("payment gateway timed out, charge state unknown")

// RejectedError carries the gateway's own reason for refusing a payment.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment rejected by gateway: %s", e.Message)
}

type AuthorizeResult struct {
	PaymentKey string `json:"payment_key"`
	OrderID    string `json:"order_id"`
	Method     string `json:"method"`
	Amount     string `json:"amount"`
	ReceiptURL string `json:"receipt_url"`
	Fee        string `json:"fee"`
}

type Gateway interface {
	Authorize(ctx context.Context, paymentKey, orderID, amount string) (*AuthorizeResult, error)
}

// HTTPGateway talks to the external processor's authorize endpoint. The secret
// key travels as basic-auth username, the gateway's usual convention.
type HTTPGateway struct {
	HTTP    *http.Client
	BaseURL string
	Secret  string
}

func NewHTTPGateway(baseURL, secret string) *HTTPGateway {
	return &HTTPGateway{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
		Secret:  secret,
	}
}

func (g *HTTPGateway) Authorize(ctx context.Context, paymentKey, orderID, amount string) (*AuthorizeResult, error) {
	body, _ := json.Marshal(map[string]string{
		"payment_key": paymentKey,
		"order_id":    orderID,
		"amount":      amount,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v1/payments/authorize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.Secret, "")

	res, err := g.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrGatewayTimeout
		}
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var er struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(res.Body).Decode(&er)
		if er.Message == "" {
			er.Message = res.Status
		}
		return nil, &RejectedError{Message: er.Message}
	}

	var out AuthorizeResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
