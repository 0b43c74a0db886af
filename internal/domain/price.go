package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/pkg/e"
)

const (
	// PriceScale — количество знаков после запятой в колонке prices.price
	PriceScale = 2
)

var (
	reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
	// верхняя граница NUMERIC(12,2)
	maxPrice = decimal.RequireFromString("9999999999.99")
)

// Price — одно неизменяемое наблюдение цены
type Price struct {
	ID        int64
	ProductID int64
	Amount    decimal.Decimal
	Currency  string
	ScrapedAt time.Time
}

func NewPrice(productID int64, amount decimal.Decimal, currency string, observedAt time.Time) *Price {
	return &Price{
		ProductID: productID,
		Amount:    amount,
		Currency:  currency,
		ScrapedAt: observedAt,
	}
}

// ValidateAmount проверяет, что сумма неотрицательна и укладывается в фиксированную точку.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return e.NewValidationError(-1, "price", "must be non-negative")
	}

	if amount.Exponent() < -PriceScale && !amount.Equal(amount.Truncate(PriceScale)) {
		return e.NewValidationError(-1, "price", "must have at most 2 decimal places")
	}

	if amount.GreaterThan(maxPrice) {
		return e.NewValidationError(-1, "price", "exceeds maximum value")
	}

	return nil
}

// NormalizeCurrency возвращает код валюты в верхнем регистре или fallback, если код пуст.
func NormalizeCurrency(code string, fallback string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = fallback
	}

	if !reCurrency.MatchString(code) {
		return "", e.NewValidationError(-1, "currency", "must be a 3-letter ISO code")
	}

	return code, nil
}
