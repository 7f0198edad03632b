package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitDivisor converts minor currency units (cents) to major units.
// The backend reports every currency in hundredths, so the divisor is fixed.
const minorUnitDivisor = 100

var divisor = decimal.NewFromInt(minorUnitDivisor)

// DisplayPrice selects the display price from a variant's price list. The
// entry whose currency matches preferred (case-insensitive) wins; otherwise
// the first entry in list order; an empty list yields zero. The minor-unit
// amount is converted to a major-unit decimal.
//
// Amounts are not validated: a negative upstream amount passes through the
// same division, matching the backend's behaviour.
func DisplayPrice(prices []RawPrice, preferred string) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}

	chosen := prices[0]
	for _, p := range prices {
		if strings.EqualFold(p.Currency, preferred) {
			chosen = p
			break
		}
	}

	return decimal.NewFromInt(chosen.Amount).Div(divisor)
}
