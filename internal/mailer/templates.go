package mailer

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopstack/inventory-api/internal/model"
)

var otpTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:20px">
  <h2>Email Verification</h2>
  <p>Your one-time password is:</p>
  <p style="font-size:22px;letter-spacing:4px;font-weight:bold">{{.OTP}}</p>
  <p>This code expires in {{.TTL}}. Do not share it with anyone.</p>
  <p>If you did not request this, you can ignore this email.</p>
</div>`))

var orderTemplate = template.Must(template.New("order").Parse(`
<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:20px">
  <h2>{{.Heading}}</h2>
  <p>{{.Intro}}</p>
  <p><b>Order ID:</b> {{.OrderID}}</p>
  <table style="border-collapse:collapse;width:100%">
    <thead>
      <tr>
        <th style="padding:8px;border:1px solid #ddd">Product</th>
        <th style="padding:8px;border:1px solid #ddd">Qty</th>
        <th style="padding:8px;border:1px solid #ddd">Price</th>
        <th style="padding:8px;border:1px solid #ddd">Subtotal</th>
      </tr>
    </thead>
    <tbody>
      {{range .Items}}<tr>
        <td style="padding:8px;border:1px solid #ddd">{{.Name}}</td>
        <td style="padding:8px;border:1px solid #ddd">{{.Quantity}}</td>
        <td style="padding:8px;border:1px solid #ddd">{{.Price}}</td>
        <td style="padding:8px;border:1px solid #ddd">{{.Subtotal}}</td>
      </tr>{{end}}
    </tbody>
    <tfoot>
      <tr>
        <td colspan="3" style="padding:8px;border:1px solid #ddd;text-align:right"><b>Total</b></td>
        <td style="padding:8px;border:1px solid #ddd"><b>{{.Total}}</b></td>
      </tr>
    </tfoot>
  </table>
  <p>We will notify you once your order is shipped.</p>
</div>`))

type orderRow struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

type orderData struct {
	Heading string
	Intro   string
	OrderID string
	Items   []orderRow
	Total   string
}

// OTPBody renders the verification email for a code with the given
// lifetime, e.g. "5 minutes".
func OTPBody(otp, ttl string) (string, error) {
	var b strings.Builder
	if err := otpTemplate.Execute(&b, struct{ OTP, TTL string }{otp, ttl}); err != nil {
		return "", fmt.Errorf("render otp mail: %w", err)
	}
	return b.String(), nil
}

// OrderBody renders an order summary table for confirmation mail. The
// heading and intro differ between COD placement and payment confirmation.
func OrderBody(heading, intro string, order *model.Order) (string, error) {
	data := orderData{
		Heading: heading,
		Intro:   intro,
		OrderID: order.ID.String(),
		Total:   order.Total.StringFixed(2),
	}
	for _, it := range order.Items {
		data.Items = append(data.Items, orderRow{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price.StringFixed(2),
			Subtotal: it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2),
		})
	}
	var b strings.Builder
	if err := orderTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render order mail: %w", err)
	}
	return b.String(), nil
}
