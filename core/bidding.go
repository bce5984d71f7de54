package core

import (
	"fmt"
)

// RunBidding executes the bid derivation pipeline:
// join → aggregate → select → adjust (pass one) → exact floors → adjust (pass two) → validate.
//
// Parameters:
//   - tables: Fully loaded reference tables
//   - cfg: Tunable constants for this run
//
// Returns:
//   - BiddingResult with enriched records and one bid per attribute row, in input order
//   - *ConfigError, *JoinIntegrityError or *BidRangeError when the run must abort;
//     no partial result is returned
//
// The function is pure: identical inputs always produce identical output.
func RunBidding(tables ReferenceTables, cfg Config) (*BiddingResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Step 1: Join the reference tables
	records, err := JoinReferenceTables(tables)
	if err != nil {
		return nil, err
	}

	// Step 2: Aggregate conversion metrics, derive the account-wide CVR once
	records = AggregateMetrics(records)
	params := RunParams{
		Config:     cfg,
		OverallCVR: ComputeOverallCVR(tables.Performance),
	}

	// Step 3: Select initial bids through the tier cascade
	records = SelectInitialBids(records, cfg)

	// Step 4: Inventory, market, quality score and ceiling adjustments
	records = AdjustBids(records, params, PassOneRules())

	// Step 5: Exact match floors from pass one bids
	floors := ComputeExactFloors(records)
	records = AttachExactFloors(records, floors)

	// Step 6: Cap broad match bids at their ad group floor
	records = AdjustBids(records, params, PassTwoRules())

	// Step 7: Output integrity
	if err := ValidateBids(records, cfg.CapBid); err != nil {
		return nil, err
	}

	result := &BiddingResult{
		Records:          records,
		Bids:             make([]KeywordBid, len(records)),
		OverallCVR:       params.OverallCVR,
		ExactFloors:      floors,
		TierCounts:       make(map[BidTier]int),
		AdjustmentCounts: make(map[string]int),
	}
	for i, record := range records {
		result.Bids[i] = KeywordBid{KeywordID: record.KeywordID, Bid: record.Bid}
		result.TierCounts[record.Tier]++
		for _, adjustment := range record.Adjustments {
			result.AdjustmentCounts[adjustment.Rule]++
		}
	}

	return result, nil
}

// Summary returns a one-line description of a result for logs.
func (r *BiddingResult) Summary() string {
	overall := "undefined"
	if value, ok := r.OverallCVR.Get(); ok {
		overall = fmt.Sprintf("%.6f", value)
	}
	return fmt.Sprintf("keywords=%d overall_cvr=%s exact_floors=%d tiers=[keyword:%d ad_group:%d make_model_year:%d make_model:%d first_position_estimate:%d]",
		len(r.Records), overall, len(r.ExactFloors),
		r.TierCounts[TierKeyword], r.TierCounts[TierAdGroup], r.TierCounts[TierMakeModelYear],
		r.TierCounts[TierMakeModel], r.TierCounts[TierFirstPositionEstimate])
}
