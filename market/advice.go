package market

// HoldingAdvice is the hold-or-sell text shown next to a price prediction.
type HoldingAdvice string

const (
	HoldThreeToFourWeeks HoldingAdvice = "Hold for 3–4 weeks (High demand, storage cost low)"
	HoldOneToTwoWeeks    HoldingAdvice = "Hold for 1–2 weeks (Moderate demand & storage cost)"
	HoldOneWeek          HoldingAdvice = "Hold for 1 week (Moderate demand, but storage costly)"
	HoldFiveToSevenDays  HoldingAdvice = "Hold for 5–7 days (Demand low but storage is cheap)"
	SellImmediately      HoldingAdvice = "Sell immediately (Low demand or high storage cost)"
)

type adviceRule struct {
	match  func(demand, storageCost float64) bool
	advice HoldingAdvice
}

// The ranges overlap; the first matching rule wins, so order is significant.
var adviceRules = []adviceRule{
	{func(d, s float64) bool { return d >= 8 && s <= 4 }, HoldThreeToFourWeeks},
	{func(d, s float64) bool { return d >= 6 && s <= 6 }, HoldOneToTwoWeeks},
	{func(d, s float64) bool { return d >= 6 && s > 6 }, HoldOneWeek},
	{func(d, s float64) bool { return d <= 4 && s <= 4 }, HoldFiveToSevenDays},
}

// Recommend maps a demand index and a storage-cost index to holding advice.
func Recommend(demand, storageCost float64) HoldingAdvice {
	for _, rule := range adviceRules {
		if rule.match(demand, storageCost) {
			return rule.advice
		}
	}
	return SellImmediately
}
