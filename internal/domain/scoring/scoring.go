// Package scoring derives the achievement metrics of a performance record.
package scoring

import "math"

// UnderperformingThreshold is the ProRatedAch below which an account is
// flagged as underperforming.
const UnderperformingThreshold = 50.0

// Band is the performance bucket of a record.
type Band string

// Performance bands. BandAll is only meaningful as a filter value.
const (
	BandAll             Band = "all"
	BandUnderperforming Band = "underperforming"
	BandGood            Band = "good"
)

// ParseBand maps a filter string onto a Band; unknown or empty input yields
// BandAll and false.
func ParseBand(s string) (Band, bool) {
	switch Band(s) {
	case BandUnderperforming, BandGood, BandAll:
		return Band(s), true
	}
	return BandAll, false
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// ProRatedAch is last30/potential as a percentage rounded to two decimals,
// or 0 when potential is not positive.
func ProRatedAch(last30, potential float64) float64 {
	if potential > 0 {
		return math.Round(last30/potential*100*100) / 100
	}
	return 0
}

// IsUnderperforming reports whether ach falls below the threshold.
func IsUnderperforming(ach float64) bool {
	return ach < UnderperformingThreshold
}

// Classify returns the band of ach.
func Classify(ach float64) Band {
	if IsUnderperforming(ach) {
		return BandUnderperforming
	}
	return BandGood
}

// Matches reports whether ach belongs to the filter band.
func (b Band) Matches(ach float64) bool {
	switch b {
	case BandUnderperforming:
		return IsUnderperforming(ach)
	case BandGood:
		return !IsUnderperforming(ach)
	default:
		return true
	}
}
