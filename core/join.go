package core

import (
	"fmt"
)

type makeModelKey struct {
	make, model string
}

type makeModelYearKey struct {
	make, model, year string
}

// JoinReferenceTables merges the reference tables into one record per keyword.
//
// Every join is a left join on the attribute rows:
//  1. attributes ⋈ performance on keyword id
//  2. ⋈ ARS on (make, model)
//  3. ⋈ current inventory on (make, model, year)
//  4. ⋈ historical inventory on (make, model, year)
//
// Unmatched keys leave the joined fields unset instead of dropping the row. The result
// is rejected with a *JoinIntegrityError if any record lacks ARS, has a year that is
// not exactly four digits, or if a key that must be unique is repeated.
func JoinReferenceTables(tables ReferenceTables) ([]KeywordRecord, error) {
	var violations []RecordViolation

	performance := make(map[string]KeywordPerformance, len(tables.Performance))
	for _, p := range tables.Performance {
		if _, dup := performance[p.KeywordID]; dup {
			violations = append(violations, RecordViolation{KeywordID: p.KeywordID, Reason: "duplicate keyword id in performance table"})
			continue
		}
		performance[p.KeywordID] = p
	}

	ars := make(map[makeModelKey]float64, len(tables.ARS))
	for _, a := range tables.ARS {
		key := makeModelKey{a.Make, a.Model}
		if _, dup := ars[key]; dup {
			violations = append(violations, RecordViolation{KeywordID: "-", Reason: fmt.Sprintf("duplicate ARS row for %s/%s", a.Make, a.Model)})
			continue
		}
		ars[key] = a.ARS
	}

	current, dupCurrent := indexInventory(tables.CurrentInventory, "current")
	historical, dupHistorical := indexInventory(tables.HistoricalInventory, "historical")
	violations = append(violations, dupCurrent...)
	violations = append(violations, dupHistorical...)

	records := make([]KeywordRecord, 0, len(tables.Attributes))
	seen := make(map[string]bool, len(tables.Attributes))

	for _, attr := range tables.Attributes {
		if seen[attr.KeywordID] {
			violations = append(violations, RecordViolation{KeywordID: attr.KeywordID, AdGroup: attr.AdGroup, Reason: "duplicate keyword id"})
			continue
		}
		seen[attr.KeywordID] = true

		record := KeywordRecord{KeywordAttributes: attr}

		// Step 1: performance
		if p, ok := performance[attr.KeywordID]; ok {
			record.Impressions = p.Impressions
			record.Clicks = p.Clicks
			record.Cost = p.Cost
			record.Conversions = p.Conversions
			record.HasPerformance = true
		}

		// Step 2: ARS, required
		if value, ok := ars[makeModelKey{attr.Make, attr.Model}]; ok {
			record.ARS = value
		} else {
			violations = append(violations, RecordViolation{KeywordID: attr.KeywordID, AdGroup: attr.AdGroup,
				Reason: fmt.Sprintf("no ARS for %s/%s", attr.Make, attr.Model)})
		}

		if !isFourDigitYear(attr.Year) {
			violations = append(violations, RecordViolation{KeywordID: attr.KeywordID, AdGroup: attr.AdGroup,
				Reason: fmt.Sprintf("year %q is not four digits", attr.Year)})
		}

		// Steps 3 and 4: inventory, optional
		inventoryKey := makeModelYearKey{attr.Make, attr.Model, attr.Year}
		if count, ok := current[inventoryKey]; ok {
			record.CurrentInventory = &count
		}
		if count, ok := historical[inventoryKey]; ok {
			record.HistoricalAvgInventory = &count
		}

		records = append(records, record)
	}

	if len(violations) > 0 {
		return nil, &JoinIntegrityError{Violations: violations}
	}
	return records, nil
}

func indexInventory(levels []InventoryLevel, table string) (map[makeModelYearKey]float64, []RecordViolation) {
	index := make(map[makeModelYearKey]float64, len(levels))
	var violations []RecordViolation
	for _, level := range levels {
		key := makeModelYearKey{level.Make, level.Model, level.Year}
		if _, dup := index[key]; dup {
			violations = append(violations, RecordViolation{KeywordID: "-",
				Reason: fmt.Sprintf("duplicate %s inventory row for %s/%s/%s", table, level.Make, level.Model, level.Year)})
			continue
		}
		index[key] = level.Count
	}
	return index, violations
}

func isFourDigitYear(year string) bool {
	if len(year) != 4 {
		return false
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
