package strategy

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentChange (current-bought)/bought*100，bought 為 0 時回傳 0
func PercentChange(current, bought float64) float64 {
	if bought == 0 {
		return 0
	}
	currentD := decimal.NewFromFloat(current)
	boughtD := decimal.NewFromFloat(bought)
	return currentD.Sub(boughtD).Div(boughtD).Mul(hundred).InexactFloat64()
}

// scale x*(1+pct/100)
func scale(x, pct float64) float64 {
	return decimal.NewFromFloat(x).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct).Div(hundred))).
		InexactFloat64()
}
