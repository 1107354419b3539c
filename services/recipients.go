package services

import (
	"strings"

	"licensepro-backend/config"
	"licensepro-backend/models"
	"licensepro-backend/utils"
)

type Recipient struct {
	Email string
	Name  string
	Type  string
}

// ResolveRecipients returns the client contact, when it has a usable
// address, followed by the administrator. An address is never listed twice.
func ResolveRecipients(l *models.License, admin config.AdminConfig) []Recipient {
	var recipients []Recipient

	if c := l.Client; c != nil {
		email := strings.TrimSpace(c.Email)
		if email != "" && utils.ValidateEmail(email) {
			recipients = append(recipients, Recipient{
				Email: email,
				Name:  c.DisplayName(),
				Type:  models.RecipientClient,
			})
		}
	}

	adminEmail := strings.TrimSpace(admin.Email)
	if adminEmail != "" {
		for _, r := range recipients {
			if strings.EqualFold(r.Email, adminEmail) {
				return recipients
			}
		}
		name := admin.Name
		if name == "" {
			name = "Administrator"
		}
		recipients = append(recipients, Recipient{
			Email: adminEmail,
			Name:  name,
			Type:  models.RecipientAdmin,
		})
	}

	return recipients
}
