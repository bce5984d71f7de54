package core

import (
	"github.com/shopspring/decimal"
)

const (
	RuleInventoryScarcity = "inventory_scarcity"
	RuleMarketCVR         = "market_cvr"
	RuleQualityScoreCap   = "quality_score_cap"
	RuleHardCap           = "hard_cap"
	RuleBroadExactFloor   = "broad_exact_floor"
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)

	midBlendTopOfPage = decimal.RequireFromString("0.5")
	midBlendFirstPos  = decimal.RequireFromString("0.5")
	lowBlendTopOfPage = decimal.RequireFromString("0.9")
	lowBlendFirstPos  = decimal.RequireFromString("0.1")
)

// AdjustmentRule is one step of an adjustment pass. Apply returns the new bid and
// whether the rule fired; a rule that does not fire must return the bid unchanged.
type AdjustmentRule struct {
	Name  string
	Apply func(record KeywordRecord, params RunParams) (float64, bool)
}

// PassOneRules returns the first adjustment pass in its fixed order: inventory
// scarcity, market vs overall CVR, quality score cap, hard ceiling.
func PassOneRules() []AdjustmentRule {
	return []AdjustmentRule{
		{Name: RuleInventoryScarcity, Apply: applyInventoryScarcity},
		{Name: RuleMarketCVR, Apply: applyMarketCVR},
		{Name: RuleQualityScoreCap, Apply: applyQualityScoreCap},
		{Name: RuleHardCap, Apply: applyHardCap},
	}
}

// PassTwoRules returns the second adjustment pass, run after exact floors are attached.
func PassTwoRules() []AdjustmentRule {
	return []AdjustmentRule{
		{Name: RuleBroadExactFloor, Apply: applyBroadExactFloor},
	}
}

// ApplyAdjustments folds the rules over the record's running bid in order and returns
// a new record with the final bid and a trace entry for every rule that fired.
func ApplyAdjustments(record KeywordRecord, params RunParams, rules []AdjustmentRule) KeywordRecord {
	result := record
	result.Adjustments = append([]AdjustmentTrace(nil), record.Adjustments...)

	for _, rule := range rules {
		before := result.Bid
		after, applied := rule.Apply(result, params)
		if !applied {
			continue
		}
		result.Bid = after
		result.Adjustments = append(result.Adjustments, AdjustmentTrace{
			Rule:   rule.Name,
			Before: before,
			After:  after,
		})
	}

	return result
}

// AdjustBids applies the rules to every record.
func AdjustBids(records []KeywordRecord, params RunParams, rules []AdjustmentRule) []KeywordRecord {
	result := make([]KeywordRecord, len(records))
	for i, record := range records {
		result[i] = ApplyAdjustments(record, params, rules)
	}
	return result
}

// dampenedFactor maps a ratio to 1 + (ratio - 1) / 2, halving the deviation from 1.
func dampenedFactor(ratio decimal.Decimal) decimal.Decimal {
	return one.Add(ratio.Sub(one).Div(two))
}

// InventoryFactor returns the scale applied when current inventory is below the
// historical average: 1 at parity, approaching 0.5 as current inventory approaches zero.
func InventoryFactor(current, historical float64) float64 {
	if historical <= 0 {
		return 1
	}
	ratio := decimal.NewFromFloat(current).Div(decimal.NewFromFloat(historical))
	factor, _ := dampenedFactor(ratio).Float64()
	return factor
}

// MarketFactor returns the dampened ratio of market CVR to overall CVR.
func MarketFactor(marketCVR, overallCVR float64) float64 {
	if overallCVR <= 0 {
		return 1
	}
	ratio := decimal.NewFromFloat(marketCVR).Div(decimal.NewFromFloat(overallCVR))
	factor, _ := dampenedFactor(ratio).Float64()
	return factor
}

// QualityScoreCap returns the ceiling for a keyword's quality score band:
// above 7 the first position estimate, above 5 an even blend of the top of page and
// first position estimates, otherwise 90% top of page and 10% first position.
func QualityScoreCap(qualityScore int, estTopOfPageBid, estFirstPositionBid float64) float64 {
	topOfPage := decimal.NewFromFloat(estTopOfPageBid)
	firstPos := decimal.NewFromFloat(estFirstPositionBid)

	var ceiling decimal.Decimal
	switch {
	case qualityScore > 7:
		ceiling = firstPos
	case qualityScore > 5:
		ceiling = topOfPage.Mul(midBlendTopOfPage).Add(firstPos.Mul(midBlendFirstPos))
	default:
		ceiling = topOfPage.Mul(lowBlendTopOfPage).Add(firstPos.Mul(lowBlendFirstPos))
	}

	result, _ := ceiling.Float64()
	return result
}

func scaleBid(bid, factor float64) float64 {
	result, _ := decimal.NewFromFloat(bid).Mul(decimal.NewFromFloat(factor)).Float64()
	return result
}

func applyInventoryScarcity(record KeywordRecord, _ RunParams) (float64, bool) {
	if record.CurrentInventory == nil || record.HistoricalAvgInventory == nil {
		return record.Bid, false
	}
	current, historical := *record.CurrentInventory, *record.HistoricalAvgInventory
	if current >= historical {
		return record.Bid, false
	}
	return scaleBid(record.Bid, InventoryFactor(current, historical)), true
}

// marketAdjustmentEligible reports whether the bid came from the make/model/year or
// make/model fallback because neither the keyword nor its ad group had enough
// conversions.
func marketAdjustmentEligible(record KeywordRecord, params RunParams) bool {
	if record.Conversions > params.MinConversionThreshold {
		return false
	}
	if record.Metrics.AdGroup.Conversions > params.MinConversionThreshold {
		return false
	}
	return record.Tier == TierMakeModelYear || record.Tier == TierMakeModel
}

// MarketAdjustmentsSkipped counts the records eligible for the market adjustment
// whose market CVR is undefined.
func MarketAdjustmentsSkipped(records []KeywordRecord, params RunParams) int {
	skipped := 0
	for _, record := range records {
		if !marketAdjustmentEligible(record, params) {
			continue
		}
		if _, ok := record.Metrics.Market.CVR.Get(); !ok {
			skipped++
		}
	}
	return skipped
}

func applyMarketCVR(record KeywordRecord, params RunParams) (float64, bool) {
	if !marketAdjustmentEligible(record, params) {
		return record.Bid, false
	}
	marketCVR, ok := record.Metrics.Market.CVR.Get()
	if !ok {
		return record.Bid, false
	}
	overallCVR, ok := params.OverallCVR.Get()
	if !ok || overallCVR <= 0 {
		return record.Bid, false
	}
	return scaleBid(record.Bid, MarketFactor(marketCVR, overallCVR)), true
}

func applyQualityScoreCap(record KeywordRecord, _ RunParams) (float64, bool) {
	ceiling := QualityScoreCap(record.QualityScore, record.EstTopOfPageBid, record.EstFirstPositionBid)
	if record.Bid <= ceiling {
		return record.Bid, false
	}
	return ceiling, true
}

func applyHardCap(record KeywordRecord, params RunParams) (float64, bool) {
	if record.Bid <= params.CapBid {
		return record.Bid, false
	}
	return params.CapBid, true
}

func applyBroadExactFloor(record KeywordRecord, _ RunParams) (float64, bool) {
	if record.MatchType != MatchBroad || record.MinExactBid == nil {
		return record.Bid, false
	}
	if record.Bid <= *record.MinExactBid {
		return record.Bid, false
	}
	return *record.MinExactBid, true
}
