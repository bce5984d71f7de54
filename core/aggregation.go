package core

import (
	"github.com/shopspring/decimal"
)

type groupTotals struct {
	conversions decimal.Decimal
	clicks      decimal.Decimal
}

func (g groupTotals) levelTotals() LevelTotals {
	conversions, _ := g.conversions.Float64()
	clicks, _ := g.clicks.Float64()
	return LevelTotals{
		Conversions: conversions,
		Clicks:      clicks,
		CVR:         NewRate(conversions, clicks),
	}
}

// groupSums sums conversions and clicks per key.
func groupSums[K comparable](records []KeywordRecord, keyFn func(*KeywordRecord) K) map[K]groupTotals {
	sums := make(map[K]groupTotals)
	for i := range records {
		key := keyFn(&records[i])
		totals := sums[key]
		totals.conversions = totals.conversions.Add(decimal.NewFromFloat(records[i].Conversions))
		totals.clicks = totals.clicks.Add(decimal.NewFromFloat(records[i].Clicks))
		sums[key] = totals
	}
	return sums
}

// AggregateMetrics computes conversion and click sums for the ad group, make/model/year,
// make/model and market groupings, and broadcasts them with their CVRs onto every
// member record. Keyword-level CVR is each record's own conversions over own clicks.
// The input slice is not modified.
func AggregateMetrics(records []KeywordRecord) []KeywordRecord {
	adGroups := groupSums(records, func(r *KeywordRecord) string { return r.AdGroup })
	makeModelYears := groupSums(records, func(r *KeywordRecord) makeModelYearKey {
		return makeModelYearKey{r.Make, r.Model, r.Year}
	})
	makeModels := groupSums(records, func(r *KeywordRecord) makeModelKey {
		return makeModelKey{r.Make, r.Model}
	})
	markets := groupSums(records, func(r *KeywordRecord) string { return r.Market })

	result := make([]KeywordRecord, len(records))
	for i, record := range records {
		record.Metrics = Aggregates{
			KeywordCVR:    NewRate(record.Conversions, record.Clicks),
			AdGroup:       adGroups[record.AdGroup].levelTotals(),
			MakeModelYear: makeModelYears[makeModelYearKey{record.Make, record.Model, record.Year}].levelTotals(),
			MakeModel:     makeModels[makeModelKey{record.Make, record.Model}].levelTotals(),
			Market:        markets[record.Market].levelTotals(),
		}
		result[i] = record
	}
	return result
}

// ComputeOverallCVR returns total conversions over total clicks across the whole
// performance table, independent of which keywords survive the join.
func ComputeOverallCVR(performance []KeywordPerformance) Rate {
	var totals groupTotals
	for _, p := range performance {
		totals.conversions = totals.conversions.Add(decimal.NewFromFloat(p.Conversions))
		totals.clicks = totals.clicks.Add(decimal.NewFromFloat(p.Clicks))
	}
	return totals.levelTotals().CVR
}
