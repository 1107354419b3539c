package mailer

import "fmt"

// Urgency levels of an expiry notice
const (
	UrgencyExpired  = "expired"
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyNormal   = "normal"
)

// ExpiryTmplData is the template data for license expiry emails. Money
// fields are already formatted for display.
type ExpiryTmplData struct {
	ToolName       string
	Vendor         string
	Serial         string
	Quantity       int
	Cost           string
	CostINR        string
	ExpirationDate string
	DaysRemaining  int
	ClientName     string
	SenderName     string

	RecipientName string
	RecipientType string
	IsAdmin       bool
}

// Urgency classifies how close the expiry is.
func (d ExpiryTmplData) Urgency() string {
	return UrgencyFor(d.DaysRemaining)
}

func (d ExpiryTmplData) Subject() string {
	return ExpirySubject(d.ToolName, d.DaysRemaining)
}

// StatusLine completes the sentence "Your X license ...".
func (d ExpiryTmplData) StatusLine() string {
	switch days := d.DaysRemaining; {
	case days < -1:
		return fmt.Sprintf("expired %d days ago", -days)
	case days == -1:
		return "expired yesterday"
	case days == 0:
		return "expires today"
	case days == 1:
		return "expires tomorrow"
	default:
		return fmt.Sprintf("expires in %d days", days)
	}
}

func (d ExpiryTmplData) Headline() string {
	switch d.Urgency() {
	case UrgencyExpired:
		return "License expired"
	case UrgencyCritical:
		return "License expiring very soon"
	default:
		return "License expiry reminder"
	}
}

func (d ExpiryTmplData) AccentColor() string {
	switch d.Urgency() {
	case UrgencyExpired, UrgencyCritical:
		return "#c62828"
	case UrgencyHigh:
		return "#ef6c00"
	default:
		return "#1565c0"
	}
}

// UrgencyFor maps days remaining to an urgency level.
func UrgencyFor(days int) string {
	switch {
	case days < 0:
		return UrgencyExpired
	case days <= 1:
		return UrgencyCritical
	case days <= 7:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

// ExpirySubject builds the subject line for an expiry notice.
func ExpirySubject(toolName string, days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("EXPIRED: %s license has expired", toolName)
	case days == 0:
		return fmt.Sprintf("URGENT: %s license expires today", toolName)
	case days == 1:
		return fmt.Sprintf("URGENT: %s license expires tomorrow", toolName)
	case days <= 7:
		return fmt.Sprintf("Important: %s license expires in %d days", toolName, days)
	default:
		return fmt.Sprintf("Reminder: %s license expires in %d days", toolName, days)
	}
}

// SMTPTestTmplData is the template data for the mail configuration check
type SMTPTestTmplData struct {
	RecipientName string
	SenderName    string
	Transport     string
	Host          string
	Port          int
	SentAt        string
}

// SMTPTestSubject is the subject of the mail configuration check
const SMTPTestSubject = "Test email from License Management System"
