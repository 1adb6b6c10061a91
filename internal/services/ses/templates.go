package ses

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"ndt-connect/internal/models"
)

// ErrNoRecipient is returned when a notification has no destination address.
var ErrNoRecipient = errors.New("email recipient is empty")

// WithdrawalEmail is the view model shared by the withdrawal templates.
type WithdrawalEmail struct {
	RequestID           string
	Status              models.WithdrawalStatus
	Method              string
	Amount              string
	Fee                 string
	NetAmount           string
	Currency            string
	Note                string
	EstimatedCompletion string
	DashboardURL        string
}

// NewWithdrawalEmail formats a withdrawal request for display. Money is shown with two decimals.
func NewWithdrawalEmail(w *models.WithdrawalRequest, dashboardURL string) WithdrawalEmail {
	return WithdrawalEmail{
		RequestID:           w.ID,
		Status:              w.Status,
		Method:              methodLabel(w.Method),
		Amount:              money(w.Amount),
		Fee:                 money(w.WithdrawalFee),
		NetAmount:           money(w.NetAmount),
		Currency:            w.Currency,
		Note:                w.Note,
		EstimatedCompletion: w.EstimatedCompletion.UTC().Format("Jan 2, 2006"),
		DashboardURL:        dashboardURL,
	}
}

// Subject returns the subject line for the current status.
func (e WithdrawalEmail) Subject() string {
	switch e.Status {
	case models.WithdrawalStatusPending:
		return fmt.Sprintf("Withdrawal request received: %s %s", e.NetAmount, e.Currency)
	case models.WithdrawalStatusProcessing:
		return "Your withdrawal is being processed"
	case models.WithdrawalStatusCompleted:
		return fmt.Sprintf("Withdrawal completed: %s %s sent", e.NetAmount, e.Currency)
	case models.WithdrawalStatusFailed:
		return "Your withdrawal could not be completed"
	case models.WithdrawalStatusCancelled:
		return "Your withdrawal was cancelled"
	}
	return "Withdrawal update"
}

var withdrawalHTML = template.Must(template.New("withdrawal").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f4c81; color: white; padding: 24px; border-radius: 10px 10px 0 0; text-align: center; }
        .content { background: #f9f9f9; padding: 24px; border-radius: 0 0 10px 10px; }
        table { width: 100%; border-collapse: collapse; }
        td { padding: 6px 0; }
        td.label { color: #777; }
        td.value { text-align: right; font-weight: bold; }
        .cta-button { display: inline-block; background: #0f4c81; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { text-align: center; margin-top: 24px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Withdrawal {{.Status}}</h1>
    </div>
    <div class="content">
        <table>
            <tr><td class="label">Request</td><td class="value">{{.RequestID}}</td></tr>
            <tr><td class="label">Method</td><td class="value">{{.Method}}</td></tr>
            <tr><td class="label">Amount</td><td class="value">{{.Amount}} {{.Currency}}</td></tr>
            <tr><td class="label">Withdrawal fee</td><td class="value">{{.Fee}} {{.Currency}}</td></tr>
            <tr><td class="label">You receive</td><td class="value">{{.NetAmount}} {{.Currency}}</td></tr>
            {{if eq .Status "pending"}}<tr><td class="label">Estimated completion</td><td class="value">{{.EstimatedCompletion}}</td></tr>{{end}}
        </table>
        {{if .Note}}<p>{{.Note}}</p>{{end}}
        {{if .DashboardURL}}
        <div style="text-align: center;">
            <a href="{{.DashboardURL}}" class="cta-button">View earnings</a>
        </div>
        {{end}}
    </div>
    <div class="footer">
        <p>This email was sent by NDT Connect</p>
    </div>
</body>
</html>`))

// HTML renders the HTML body.
func (e WithdrawalEmail) HTML() (string, error) {
	var buf bytes.Buffer
	if err := withdrawalHTML.Execute(&buf, e); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Text renders the plain text body.
func (e WithdrawalEmail) Text() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n\n", e.Subject())
	fmt.Fprintf(&sb, "Request: %s\n", e.RequestID)
	fmt.Fprintf(&sb, "Method: %s\n", e.Method)
	fmt.Fprintf(&sb, "Amount: %s %s\n", e.Amount, e.Currency)
	fmt.Fprintf(&sb, "Withdrawal fee: %s %s\n", e.Fee, e.Currency)
	fmt.Fprintf(&sb, "You receive: %s %s\n", e.NetAmount, e.Currency)
	if e.Status == models.WithdrawalStatusPending {
		fmt.Fprintf(&sb, "Estimated completion: %s\n", e.EstimatedCompletion)
	}
	if e.Note != "" {
		fmt.Fprintf(&sb, "\n%s\n", e.Note)
	}
	if e.DashboardURL != "" {
		fmt.Fprintf(&sb, "\nView earnings: %s\n", e.DashboardURL)
	}
	sb.WriteString("\nBest regards,\nNDT Connect Team\n")

	return sb.String()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func methodLabel(m models.WithdrawalMethod) string {
	switch m {
	case models.WithdrawalMethodBankTransfer:
		return "Bank transfer"
	case models.WithdrawalMethodPayPal:
		return "PayPal"
	case models.WithdrawalMethodStripe:
		return "Stripe"
	case models.WithdrawalMethodCrypto:
		return "Crypto"
	}
	return string(m)
}
