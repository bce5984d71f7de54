package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // 4 decimal places for bid comparisons (0.0001 precision)

// ComputeExactFloors returns, per ad group, the minimum bid among its Exact match
// records. Ad groups without an Exact record are absent from the map.
func ComputeExactFloors(records []KeywordRecord) map[string]float64 {
	floors := make(map[string]float64)
	for _, record := range records {
		if record.MatchType != MatchExact {
			continue
		}
		floor, exists := floors[record.AdGroup]
		if !exists || record.Bid < floor {
			floors[record.AdGroup] = record.Bid
		}
	}
	return floors
}

// AttachExactFloors sets MinExactBid on every record of an ad group that has a floor,
// whatever its match type, and clears it otherwise.
func AttachExactFloors(records []KeywordRecord, floors map[string]float64) []KeywordRecord {
	result := make([]KeywordRecord, len(records))
	for i, record := range records {
		record.MinExactBid = nil
		if floor, ok := floors[record.AdGroup]; ok {
			record.MinExactBid = &floor
		}
		result[i] = record
	}
	return result
}

// BidWithinRange returns true if 0 <= bid <= ceiling.
// Uses decimal arithmetic with monetaryPrecision to avoid floating-point errors.
func BidWithinRange(bid, ceiling float64) bool {
	if math.IsNaN(bid) || math.IsInf(bid, 0) {
		return false
	}
	bidDecimal := decimal.NewFromFloat(bid).Round(monetaryPrecision)
	ceilingDecimal := decimal.NewFromFloat(ceiling).Round(monetaryPrecision)

	return !bidDecimal.IsNegative() && bidDecimal.LessThanOrEqual(ceilingDecimal)
}

// ValidateBids checks every final bid against [0, cap] and returns a *BidRangeError
// naming each offending record.
func ValidateBids(records []KeywordRecord, capBid float64) error {
	var violations []RecordViolation
	for _, record := range records {
		if !BidWithinRange(record.Bid, capBid) {
			violations = append(violations, RecordViolation{
				KeywordID: record.KeywordID,
				AdGroup:   record.AdGroup,
				Reason:    fmt.Sprintf("bid %v outside [0, %v]", record.Bid, capBid),
			})
		}
	}
	if len(violations) > 0 {
		return &BidRangeError{Cap: capBid, Violations: violations}
	}
	return nil
}
