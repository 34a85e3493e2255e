package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayError indica falla del procesador remoto (transporte o respuesta no-2xx).
// El orquestador no debe persistir nada localmente cuando recibe este error.
type GatewayError struct {
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error: %v", e.Err)
	}
	return fmt.Sprintf("gateway error: status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// GatewayOrder es el intent remoto: el gateway hace eco del monto y la moneda.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // unidades menores
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RazorpayClient habla con la API de órdenes del gateway.
// Instancia explícita con credenciales inyectadas, nada de singletons globales.
type RazorpayClient struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayClient(keyID, keySecret, baseURL string) *RazorpayClient {
	return &RazorpayClient{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateOrder crea el intent remoto. amount viene ya convertido a unidades
// menores (paise); payment_capture=1 para captura automática, igual que el checkout.
func (r *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	body, err := json.Marshal(map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode}
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, &GatewayError{Err: err}
	}

	return &order, nil
}
