package core

import (
	"testing"
)

func ptr(v float64) *float64 {
	return &v
}

// keyword builds an attribute row with neutral bid estimates.
func keyword(id, adGroup string, matchType MatchType) KeywordAttributes {
	return KeywordAttributes{
		KeywordID:           id,
		AdGroup:             adGroup,
		Campaign:            "SRCH-I-DAL",
		MatchType:           matchType,
		QualityScore:        8,
		EstFirstPositionBid: 20,
		EstTopOfPageBid:     15,
		Market:              "DAL",
		Make:                "Toyota",
		Model:               "Camry",
		Year:                "2019",
	}
}

func performance(id string, clicks, conversions float64) KeywordPerformance {
	return KeywordPerformance{KeywordID: id, Impressions: clicks * 10, Clicks: clicks, Cost: clicks * 1.5, Conversions: conversions}
}

func findRecord(t *testing.T, records []KeywordRecord, id string) KeywordRecord {
	t.Helper()
	for _, record := range records {
		if record.KeywordID == id {
			return record
		}
	}
	t.Fatalf("record %s not found", id)
	return KeywordRecord{}
}

func ruleNames(record KeywordRecord) []string {
	names := make([]string, 0, len(record.Adjustments))
	for _, adjustment := range record.Adjustments {
		names = append(names, adjustment.Rule)
	}
	return names
}

func definedRate(value float64) Rate {
	return Rate{Value: value, Defined: true}
}
