package services

import (
	"testing"

	"licensepro-backend/config"
	"licensepro-backend/models"

	"github.com/google/go-cmp/cmp"
)

func TestResolveRecipients(t *testing.T) {
	admin := config.AdminConfig{Email: "admin@x.com", Name: "Ops"}

	testCases := []struct {
		name     string
		client   *models.Client
		admin    config.AdminConfig
		expected []Recipient
	}{
		{
			name:   "client and admin",
			client: &models.Client{Name: "Acme", ContactPerson: "Jane", Email: "c@x.com"},
			admin:  admin,
			expected: []Recipient{
				{Email: "c@x.com", Name: "Jane", Type: models.RecipientClient},
				{Email: "admin@x.com", Name: "Ops", Type: models.RecipientAdmin},
			},
		},
		{
			name:   "client without contact person",
			client: &models.Client{Name: "Acme", Email: " c@x.com "},
			admin:  config.AdminConfig{},
			expected: []Recipient{
				{Email: "c@x.com", Name: "Acme", Type: models.RecipientClient},
			},
		},
		{
			name:   "client without email",
			client: &models.Client{Name: "Acme"},
			admin:  admin,
			expected: []Recipient{
				{Email: "admin@x.com", Name: "Ops", Type: models.RecipientAdmin},
			},
		},
		{
			name:   "invalid client email",
			client: &models.Client{Name: "Acme", Email: "not-an-email"},
			admin:  admin,
			expected: []Recipient{
				{Email: "admin@x.com", Name: "Ops", Type: models.RecipientAdmin},
			},
		},
		{
			name:   "same address once",
			client: &models.Client{Name: "Acme", Email: "Admin@x.com"},
			admin:  admin,
			expected: []Recipient{
				{Email: "Admin@x.com", Name: "Acme", Type: models.RecipientClient},
			},
		},
		{
			name:     "nobody",
			client:   nil,
			admin:    config.AdminConfig{},
			expected: nil,
		},
		{
			name:   "admin default name",
			client: nil,
			admin:  config.AdminConfig{Email: "admin@x.com"},
			expected: []Recipient{
				{Email: "admin@x.com", Name: "Administrator", Type: models.RecipientAdmin},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRecipients(&models.License{Client: tc.client}, tc.admin)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
