package core

import (
	"github.com/shopspring/decimal"
)

// tierCandidate is one level of the fallback cascade.
type tierCandidate struct {
	tier        BidTier
	conversions float64
	cvr         Rate
}

// candidates lists the performance-based tiers from most to least specific.
func candidates(record KeywordRecord) []tierCandidate {
	return []tierCandidate{
		{TierKeyword, record.Conversions, record.Metrics.KeywordCVR},
		{TierAdGroup, record.Metrics.AdGroup.Conversions, record.Metrics.AdGroup.CVR},
		{TierMakeModelYear, record.Metrics.MakeModelYear.Conversions, record.Metrics.MakeModelYear.CVR},
		{TierMakeModel, record.Metrics.MakeModel.Conversions, record.Metrics.MakeModel.CVR},
	}
}

// SelectInitialBid picks the bid basis from the most specific granularity whose
// conversions strictly exceed the threshold: CVR × ARS for the keyword, ad group,
// make/model/year and make/model levels in that order, and the first position
// estimate when none qualifies. A level with an undefined CVR never qualifies.
//
// Returns the bid and the tier it was derived from.
func SelectInitialBid(record KeywordRecord, cfg Config) (float64, BidTier) {
	ars := decimal.NewFromFloat(record.ARS)

	for _, c := range candidates(record) {
		if c.conversions <= cfg.MinConversionThreshold {
			continue
		}
		cvr, ok := c.cvr.Get()
		if !ok {
			continue
		}
		bid, _ := decimal.NewFromFloat(cvr).Mul(ars).Float64()
		return bid, c.tier
	}

	return record.EstFirstPositionBid, TierFirstPositionEstimate
}

// SelectInitialBids applies SelectInitialBid to every record and returns new records
// with Bid and Tier set.
func SelectInitialBids(records []KeywordRecord, cfg Config) []KeywordRecord {
	result := make([]KeywordRecord, len(records))
	for i, record := range records {
		record.Bid, record.Tier = SelectInitialBid(record, cfg)
		record.Adjustments = nil
		result[i] = record
	}
	return result
}
