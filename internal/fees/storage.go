package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// StorageFee is a monthly-storage estimate and the inputs that produced it.
type StorageFee struct {
	Season    Season    `json:"season"`
	Tier      SizeTier  `json:"tier"`
	Class     TierClass `json:"class"`
	Bracket   string    `json:"bracket"`
	Weeks     float64   `json:"weeks"`
	CubicFeet float64   `json:"cubic_feet"`
	Rate      float64   `json:"rate"`
	Dangerous bool      `json:"dangerous"`
	Fee       float64   `json:"fee"`
}

// SeasonAt returns Peak for October through December, otherwise OffPeak.
func SeasonAt(now time.Time) Season {
	if now.Month() >= time.October {
		return Peak
	}
	return OffPeak
}

// Storage estimates the storage fee for holding d for months months.
// Regular goods pay cubicFeet × (base + surcharge) for the week bracket;
// dangerous goods pay cubicFeet × the season's flat rate for the tier class.
// ok is false when geometry is missing.
func (c *Calculator) Storage(d Dimensions, months float64, dangerous bool, now time.Time) (StorageFee, bool) {
	if !d.Valid() {
		return StorageFee{}, false
	}

	tier := Classify(d)
	class := tier.Class()
	season := SeasonAt(now)
	rates, ok := c.Table.Storage[season]
	if !ok {
		return StorageFee{}, false
	}

	cubic := d.CubicFeet()
	weeks := months * c.Table.WeeksPerMonth
	fee := StorageFee{
		Season:    season,
		Tier:      tier,
		Class:     class,
		Weeks:     weeks,
		CubicFeet: cubic,
		Dangerous: dangerous,
	}

	var rate decimal.Decimal
	if dangerous {
		rate = rates.Dangerous[class]
		fee.Bracket = "dangerous"
	} else {
		idx, label := c.Table.WeekBracket(weeks)
		tiers := rates.Tiers[class]
		if idx >= len(tiers) {
			return StorageFee{}, false
		}
		rate = tiers[idx].Total()
		fee.Bracket = label
	}

	fee.Rate = rate.InexactFloat64()
	fee.Fee = decimal.NewFromFloat(cubic).Mul(rate).InexactFloat64()
	return fee, true
}
