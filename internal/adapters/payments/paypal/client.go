package paypal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/domain/payments"
	"pet-wellness/internal/platform/httpclient"
)

var (
	ErrPayPalNotConfigured = errors.New("paypal client not configured")
	ErrPayPalUnauthorized  = errors.New("paypal unauthorized")
	ErrPayPalUpstream      = errors.New("paypal upstream error")
)

const SandboxBaseURL = "https://api-m.sandbox.paypal.com"

type Config struct {
	BaseURL  string
	ClientID string
	Secret   string

	Timeout time.Duration
}

// Client implementa payments.Gateway contra la Orders API v2.
type Client struct {
	http     *httpclient.Client
	clientID string
	secret   string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = SandboxBaseURL
	}
	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:     hc,
		clientID: strings.TrimSpace(cfg.ClientID),
		secret:   strings.TrimSpace(cfg.Secret),
		now:      time.Now,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.clientID != "" && c.secret != ""
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []link `json:"links"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []struct {
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (o orderResponse) toOrder() payments.Order {
	out := payments.Order{ID: o.ID, Status: o.Status}
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			out.ApproveURL = l.Href
			break
		}
	}
	for _, pu := range o.PurchaseUnits {
		if pu.CustomID != "" {
			out.UserID = pu.CustomID
			break
		}
		for _, cp := range pu.Payments.Captures {
			if cp.CustomID != "" {
				out.UserID = cp.CustomID
				break
			}
		}
		if out.UserID != "" {
			break
		}
	}
	return out
}

func (c *Client) CreateOrder(ctx context.Context, req payments.OrderRequest) (payments.Order, error) {
	if !c.IsConfigured() {
		return payments.Order{}, ErrPayPalNotConfigured
	}
	if strings.TrimSpace(req.Amount) == "" {
		return payments.Order{}, errors.New("paypal: amount required")
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"custom_id":   req.UserID,
			"description": req.Description,
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         req.Amount,
			},
		}},
		"application_context": map[string]string{
			"return_url":  req.ReturnURL,
			"cancel_url":  req.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var out orderResponse
	if err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return payments.Order{}, err
	}
	return out.toOrder(), nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (payments.Order, error) {
	if !c.IsConfigured() {
		return payments.Order{}, ErrPayPalNotConfigured
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return payments.Order{}, errors.New("paypal: order id required")
	}

	var out orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.call(ctx, http.MethodPost, path, map[string]any{}, &out); err != nil {
		return payments.Order{}, err
	}
	return out.toOrder(), nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	err = mapErr(c.http.DoJSON(ctx, method, path, map[string]string{
		"Authorization": "Bearer " + tok,
	}, in, out))
	if errors.Is(err, ErrPayPalUnauthorized) {
		// token revocado: el próximo call pide uno nuevo
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	return err
}

// accessToken usa client_credentials y cachea el token hasta poco antes de
// que expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	err := c.http.DoForm(ctx, "/v1/oauth2/token", map[string]string{
		"Authorization": "Basic " + basic,
	}, url.Values{"grant_type": {"client_credentials"}}, &out)
	if err != nil {
		return "", mapErr(err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrPayPalUpstream)
	}

	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute
	}
	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(ttl)
	return c.token, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var he *httpclient.HTTPError
	if errors.As(err, &he) {
		switch he.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrPayPalUnauthorized
		}
		return fmt.Errorf("%w: status=%d", ErrPayPalUpstream, he.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrPayPalUpstream, err)
}
