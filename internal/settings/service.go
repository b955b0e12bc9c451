package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/pricing"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/logger"
)

// Parameter keys exposed by the runtime settings store.
const (
	KeyShippingFlatRateBase   = "shipping_flat_rate_base"
	KeyTaxRate                = "tax_rate"
	KeySessionFee             = "pricing/session-fee"
	KeyCustomTShirtBase       = "pricing/custom-tshirt-base"
	KeyBothPlacementSurcharge = "pricing/both-placement-surcharge"
)

var defaults = map[string]string{
	KeyShippingFlatRateBase:   "5.99",
	KeyTaxRate:                "0",
	KeySessionFee:             "5.00",
	KeyCustomTShirtBase:       "24.99",
	KeyBothPlacementSurcharge: "5.00",
}

// Service reads runtime configuration as key to string-value lookups with
// engine-supplied defaults when a key is absent.
type Service interface {
	Get(ctx context.Context, key string) (string, error)
	PricingConfig(ctx context.Context) (pricing.Config, error)
}

type service struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewService builds a settings service over the settings table.
func NewService(db *gorm.DB, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("settings db handle required")
	}
	return &service{db: db, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if fallback, ok := defaults[key]; ok {
				return fallback, nil
			}
			return "", fmt.Errorf("unknown setting %q", key)
		}
		return "", err
	}
	return setting.Value, nil
}

// PricingConfig snapshots every pricing parameter in one pass so a checkout
// observes a consistent rate set even if settings change mid-flight.
func (s *service) PricingConfig(ctx context.Context) (pricing.Config, error) {
	cfg := pricing.Config{}
	fields := []struct {
		key  string
		dest *decimal.Decimal
	}{
		{KeyShippingFlatRateBase, &cfg.ShippingFlatRateBase},
		{KeyTaxRate, &cfg.TaxRate},
		{KeySessionFee, &cfg.SessionFee},
		{KeyCustomTShirtBase, &cfg.CustomTShirtBase},
		{KeyBothPlacementSurcharge, &cfg.BothPlacementSurcharge},
	}
	for _, field := range fields {
		raw, err := s.Get(ctx, field.key)
		if err != nil {
			return pricing.Config{}, err
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			// A malformed stored value falls back to the shipped default
			// rather than blocking every checkout.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"setting": field.key,
					"value":   raw,
				}), "settings.invalid_decimal")
			}
			value = decimal.RequireFromString(defaults[field.key])
		}
		*field.dest = value
	}
	return cfg, nil
}
