package delivery

import (
	"errors"
	"math"

	"github.com/ikkim/bazaar-backend/pkg/util"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDistance = errors.New("distance must not be negative")
	ErrOutOfRange      = errors.New("address is outside the delivery area")
)

// Settings is the store-wide delivery fee configuration
type Settings struct {
	BaseFee               decimal.Decimal
	BaseDistanceKm        float64
	PerKmFee              decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal // zero disables free delivery
	MaxDistanceKm         float64         // zero means unlimited
}

// Compute returns the home delivery fee for an order.
//
// Orders at or above the free delivery threshold ship free. Within the base
// distance the base fee applies, every started kilometre beyond it adds PerKmFee.
func Compute(distanceKm float64, orderTotal decimal.Decimal, settings Settings) (decimal.Decimal, error) {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		return decimal.Zero, ErrInvalidDistance
	}
	if settings.MaxDistanceKm > 0 && distanceKm > settings.MaxDistanceKm {
		return decimal.Zero, ErrOutOfRange
	}
	if settings.FreeDeliveryThreshold.IsPositive() && orderTotal.GreaterThanOrEqual(settings.FreeDeliveryThreshold) {
		return decimal.Zero, nil
	}
	if distanceKm <= settings.BaseDistanceKm {
		return settings.BaseFee, nil
	}

	extraKm := math.Ceil(distanceKm - settings.BaseDistanceKm)
	return settings.BaseFee.Add(settings.PerKmFee.Mul(decimal.NewFromFloat(extraKm))), nil
}

// DistanceFromStore is the straight-line distance from the store to a customer
func DistanceFromStore(storeLat, storeLon, lat, lon float64) float64 {
	return util.CalculateDistance(storeLat, storeLon, lat, lon)
}
