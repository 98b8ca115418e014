package enrollment

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// redemptionDiscount returns percent% of price, rounded to cents and clamped to [0, price].
func redemptionDiscount(price, percent decimal.Decimal) decimal.Decimal {
	discount := price.Mul(percent).Div(hundred).Round(2)
	return clampDiscount(price, discount)
}

// pointsDiscount converts points into a currency discount at `perUnit` points per currency unit.
func pointsDiscount(price decimal.Decimal, points, perUnit int) decimal.Decimal {
	if points <= 0 || perUnit <= 0 {
		return decimal.Zero
	}
	discount := decimal.NewFromInt(int64(points)).Div(decimal.NewFromInt(int64(perUnit))).Round(2)
	return clampDiscount(price, discount)
}

func clampDiscount(price, discount decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, price)
}

// finalAmount is the payable amount, never negative.
func finalAmount(price, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, price.Sub(discount)).Round(2)
}
