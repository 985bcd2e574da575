package model

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinor converts a major-unit amount (e.g. 12.34) to minor units (1234).
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinor converts minor units back to a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// ApplyDiscount applies a coupon to amount (minor units): flat amount first, then percentage,
// floored at zero. The percentage discount is truncated to whole minor units.
func ApplyDiscount(coupon *AppCoupon, amount int64) int64 {
	if coupon == nil {
		return amount
	}
	if coupon.AmountOff != nil {
		amount -= ToMinor(*coupon.AmountOff)
	}
	if coupon.PercentOff != nil {
		discount := decimal.NewFromInt(amount).Mul(*coupon.PercentOff).Div(hundred).IntPart()
		amount -= discount
	}
	if amount < 0 {
		return 0
	}
	return amount
}
