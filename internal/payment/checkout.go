// Package payment talks to the hosted checkout provider: creating payment
// sessions and authenticating the webhook events it sends back.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// EventCheckoutCompleted is the webhook event type emitted when a hosted
// checkout session has been paid.
const EventCheckoutCompleted = "checkout.session.completed"

type LineItem struct {
	Name       string
	UnitAmount int64 // smallest currency unit
	Quantity   int
}

type SessionParams struct {
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is the subset of a webhook payload this service consumes.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string            `json:"id"`
			CustomerEmail string            `json:"customer_email"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func ParseEvent(payload []byte) (*Event, error) {
	ev := &Event{}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}
	return ev, nil
}

// Provider creates hosted checkout sessions with the external payment
// service.
type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}

// Client implements Provider against a Stripe-compatible REST API.
type Client struct {
	apiBase   string
	secretKey string
	currency  string
	http      *http.Client
}

func NewClient(apiBase, secretKey, currency string, timeout time.Duration) *Client {
	return &Client{
		apiBase:   strings.TrimRight(apiBase, "/"),
		secretKey: secretKey,
		currency:  currency,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for i, li := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", c.currency)
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create checkout session: provider returned %d", resp.StatusCode)
	}

	session := &Session{}
	if err := json.Unmarshal(body, session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	return session, nil
}
