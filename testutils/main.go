// Package testutils provides utilities used in tests
package testutils

import (
	"fmt"
	"testing"
	"time"

	"licensepro-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitMemoryDB creates an in-memory SQLite database with every table
// migrated. Each call gets its own database.
func InitMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

// MustExec fails the test if the gorm operation returned an error
func MustExec(t *testing.T, db *gorm.DB, message string) {
	t.Helper()
	if err := db.Error; err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// SetupClient creates a client with the given contact email
func SetupClient(t *testing.T, db *gorm.DB, name, email string) models.Client {
	c := models.Client{Name: name, ContactPerson: name + " Contact", Email: email}
	MustExec(t, db.Create(&c), "creating client")
	return c
}

// SetupLicense creates a license expiring on the given date
func SetupLicense(t *testing.T, db *gorm.DB, client *models.Client, tool string, expires time.Time, currencyCode string, total float64) models.License {
	l := models.License{
		ToolName:       tool,
		Vendor:         "Vendor",
		Quantity:       1,
		TotalCost:      decimal.NewFromFloat(total),
		CurrencyCode:   currencyCode,
		ExpirationDate: models.NewDate(expires),
	}
	if client != nil {
		l.ClientID = &client.ID
	}
	MustExec(t, db.Create(&l), "creating license")
	return l
}

// SetupCurrency stores a currency rate updated at the given time
func SetupCurrency(t *testing.T, db *gorm.DB, code, rate string, updated time.Time) models.Currency {
	c := models.Currency{
		Code:              code,
		Name:              code,
		Symbol:            code,
		ExchangeRateToINR: decimal.RequireFromString(rate),
		IsDefault:         code == models.CurrencyINR,
		RateUpdatedAt:     updated,
	}
	MustExec(t, db.Save(&c), "saving currency")
	return c
}
