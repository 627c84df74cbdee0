package market

import "math"

// Quote is the priced answer for a stock of one crop.
type Quote struct {
	PricePerQuintal float64       `json:"price_per_quintal"`
	PricePerKg      float64       `json:"price_per_kg"`
	TotalValue      float64       `json:"total_value"`
	Recommendation  HoldingAdvice `json:"recommendation"`
}

// NewQuote turns a predicted price per quintal (100 kg) into per-kg and total
// values for stockKg, each rounded to two decimals.
func NewQuote(predictedPrice, stockKg, demand, storageCost float64) Quote {
	perQuintal := Round2(predictedPrice)
	return Quote{
		PricePerQuintal: perQuintal,
		PricePerKg:      Round2(perQuintal / 100),
		TotalValue:      Round2(perQuintal * (stockKg / 100)),
		Recommendation:  Recommend(demand, storageCost),
	}
}

// Round2 rounds to two decimal places, halves away from zero. The scaling is
// done in float64, so a value like 2.675 (stored as 2.67499...) rounds down.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Finite reports whether every amount is a finite number. Huge stock or price
// values overflow to infinity, which has no JSON representation.
func (q Quote) Finite() bool {
	for _, v := range []float64{q.PricePerQuintal, q.PricePerKg, q.TotalValue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
