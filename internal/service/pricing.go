package service

import (
	"math"

	"github.com/equiply/workflow-service/internal/domain"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

var transportFees = map[domain.TransportOption]float64{
	domain.TransportWeHandleIt:  150,
	domain.TransportYouHandleIt: 0,
}

var equipmentMultipliers = map[domain.EquipmentCategory]float64{
	domain.EquipmentSkidSteers:      1.0,
	domain.EquipmentFrontEndLoaders: 1.2,
	domain.EquipmentBackhoes:        1.1,
	domain.EquipmentBulldozers:      1.5,
	domain.EquipmentGraders:         1.3,
	domain.EquipmentDumpTrucks:      1.1,
	domain.EquipmentWaterTrucks:     1.0,
	domain.EquipmentSweepers:        1.2,
	domain.EquipmentTrenchers:       1.1,
}

var hoursPerDuration = map[domain.DurationType]int{
	domain.DurationHalfDay:  4,
	domain.DurationFullDay:  8,
	domain.DurationMultiDay: 8,
	domain.DurationWeekly:   40,
}

var hoursPerRateUnit = map[domain.RateType]float64{
	domain.RateHourly:  1,
	domain.RateHalfDay: 4,
	domain.RateDaily:   8,
	domain.RateWeekly:  40,
}

// PricingInput is the subset of a request that determines its estimate.
type PricingInput struct {
	DurationType      domain.DurationType
	DurationValue     int
	BaseRate          float64
	RateType          domain.RateType
	Transport         domain.TransportOption
	EquipmentCategory domain.EquipmentCategory
}

// Pricing is a cost estimate in dollars.
type Pricing struct {
	TotalHours    int
	BaseCost      float64
	TransportFee  float64
	TotalEstimate float64
}

// EstimatePricing bills whole rate units, scales by the equipment multiplier
// and adds the transport fee.
func EstimatePricing(in PricingInput) (Pricing, error) {
	perUnit, ok := hoursPerDuration[in.DurationType]
	if !ok {
		return Pricing{}, apperrors.NewValidationError("invalid duration type", map[string]any{"duration_type": in.DurationType})
	}
	if in.DurationValue <= 0 {
		return Pricing{}, apperrors.NewValidationError("duration value must be positive", map[string]any{"duration_value": in.DurationValue})
	}
	if in.BaseRate <= 0 {
		return Pricing{}, apperrors.NewValidationError("base rate must be positive", map[string]any{"base_rate": in.BaseRate})
	}
	unitHours, ok := hoursPerRateUnit[in.RateType]
	if !ok {
		return Pricing{}, apperrors.NewValidationError("invalid rate type", map[string]any{"rate_type": in.RateType})
	}
	multiplier, ok := equipmentMultipliers[in.EquipmentCategory]
	if !ok {
		return Pricing{}, apperrors.NewValidationError("invalid equipment category", map[string]any{"equipment_category": in.EquipmentCategory})
	}
	fee, ok := transportFees[in.Transport]
	if !ok {
		return Pricing{}, apperrors.NewValidationError("invalid transport option", map[string]any{"transport": in.Transport})
	}

	totalHours := perUnit * in.DurationValue
	units := math.Ceil(float64(totalHours) / unitHours)
	baseCost := math.Round(units*in.BaseRate*multiplier*100) / 100
	return Pricing{
		TotalHours:    totalHours,
		BaseCost:      baseCost,
		TransportFee:  fee,
		TotalEstimate: baseCost + fee,
	}, nil
}
