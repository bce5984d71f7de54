package core

import (
	"errors"
	"strconv"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

// scenarioTables builds one ad group with an Exact, a Phrase and a Broad keyword that
// each have enough conversions for a keyword-level bid of 9, 11 and 14 (ARS 100).
func scenarioTables() ReferenceTables {
	return ReferenceTables{
		Attributes: []KeywordAttributes{
			keyword("exact", "ag1", MatchExact),
			keyword("phrase", "ag1", MatchPhrase),
			keyword("broad", "ag1", MatchBroad),
		},
		Performance: []KeywordPerformance{
			performance("exact", 200, 18),
			performance("phrase", 200, 22),
			performance("broad", 200, 28),
		},
		ARS: []ModelARS{{Make: "Toyota", Model: "Camry", ARS: 100}},
	}
}

func TestRunBidding_ExactFloorScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapBid = 20

	result, err := RunBidding(scenarioTables(), cfg)
	assert.NoError(t, err)

	exact := findRecord(t, result.Records, "exact")
	phrase := findRecord(t, result.Records, "phrase")
	broad := findRecord(t, result.Records, "broad")

	check.Equal(t, map[string]float64{"ag1": 9}, result.ExactFloors)
	assert.NotNil(t, broad.MinExactBid)
	check.Equal(t, 9.0, *broad.MinExactBid)

	check.Equal(t, 9.0, exact.Bid)
	check.Equal(t, 11.0, phrase.Bid)
	check.Equal(t, 9.0, broad.Bid)
	check.Equal(t, []AdjustmentTrace{{Rule: RuleBroadExactFloor, Before: 14, After: 9}}, broad.Adjustments)

	check.Equal(t, []KeywordBid{
		{KeywordID: "exact", Bid: 9},
		{KeywordID: "phrase", Bid: 11},
		{KeywordID: "broad", Bid: 9},
	}, result.Bids)
	check.Equal(t, 3, result.TierCounts[TierKeyword])
	check.Equal(t, 1, result.AdjustmentCounts[RuleBroadExactFloor])
}

func TestRunBidding_BroadWithoutExactIsUnconstrained(t *testing.T) {
	tables := scenarioTables()
	tables.Attributes = tables.Attributes[1:]

	cfg := DefaultConfig()
	cfg.CapBid = 20

	result, err := RunBidding(tables, cfg)
	assert.NoError(t, err)

	broad := findRecord(t, result.Records, "broad")
	check.Nil(t, broad.MinExactBid)
	check.Equal(t, 14.0, broad.Bid)
	check.Equal(t, 0, len(result.ExactFloors))
}

func TestRunBidding_Properties(t *testing.T) {
	tables := ReferenceTables{
		Attributes: []KeywordAttributes{
			keyword("kw1", "ag1", MatchExact),
			keyword("kw2", "ag1", MatchBroad),
			keyword("kw3", "ag1", MatchPhrase),
			keyword("kw4", "ag2", MatchBroad),
			keyword("kw5", "ag2", MatchExact),
			keyword("kw6", "ag3", MatchBroad),
		},
		Performance: []KeywordPerformance{
			performance("kw1", 50, 12),
			performance("kw2", 10, 1),
			performance("kw3", 300, 2),
			performance("kw4", 80, 3),
			performance("kw5", 0, 0),
			performance("unmatched", 1000, 30),
		},
		ARS: []ModelARS{{Make: "Toyota", Model: "Camry", ARS: 400}},
		CurrentInventory: []InventoryLevel{
			{Make: "Toyota", Model: "Camry", Year: "2019", Count: 3},
		},
		HistoricalInventory: []InventoryLevel{
			{Make: "Toyota", Model: "Camry", Year: "2019", Count: 12},
		},
	}
	tables.Attributes[2].QualityScore = 4
	tables.Attributes[3].QualityScore = 6

	cfg := DefaultConfig()
	result, err := RunBidding(tables, cfg)
	assert.NoError(t, err)
	assert.Equal(t, len(tables.Attributes), len(result.Bids))

	for i, record := range result.Records {
		check.Equal(t, tables.Attributes[i].KeywordID, result.Bids[i].KeywordID)
		check.True(t, record.Bid >= 0 && record.Bid <= cfg.CapBid)
		if record.MatchType == MatchBroad {
			if floor, ok := result.ExactFloors[record.AdGroup]; ok {
				check.True(t, record.Bid <= floor)
			}
		}
	}

	// Same inputs, same output
	again, err := RunBidding(tables, cfg)
	assert.NoError(t, err)
	check.Equal(t, result, again)
}

func TestRunBidding_MarketAdjustmentUsesOverallCVR(t *testing.T) {
	// kw1 has few conversions and a small ad group; the make/model/year level qualifies.
	// kw2 lives in another market and carries the bulk of conversions.
	kw1 := keyword("kw1", "ag1", MatchExact)
	kw2 := keyword("kw2", "ag2", MatchExact)
	kw2.Market = "HOU"

	tables := ReferenceTables{
		Attributes:  []KeywordAttributes{kw1, kw2},
		Performance: []KeywordPerformance{performance("kw1", 100, 5), performance("kw2", 100, 10)},
		ARS:         []ModelARS{{Make: "Toyota", Model: "Camry", ARS: 100}},
	}

	result, err := RunBidding(tables, DefaultConfig())
	assert.NoError(t, err)

	// make/model/year CVR 15/200 = 0.075 → 7.5; market DAL 0.05 vs overall 0.075
	// → factor 1 + (2/3 - 1)/2 ≈ 0.8333, bid ≈ 6.25
	first := findRecord(t, result.Records, "kw1")
	check.Equal(t, TierMakeModelYear, first.Tier)
	check.Equal(t, []string{RuleMarketCVR}, ruleNames(first))
	check.True(t, first.Bid > 6.2499 && first.Bid < 6.2501)
	check.Equal(t, definedRate(0.075), result.OverallCVR)
}

func TestRunBidding_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CapBid = 0
		_, err := RunBidding(scenarioTables(), cfg)

		var cfgErr *ConfigError
		check.True(t, errors.As(err, &cfgErr))
	})

	t.Run("cap not writable at bid precision", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CapBid = 8.345
		result, err := RunBidding(scenarioTables(), cfg)
		check.Nil(t, result)

		var cfgErr *ConfigError
		check.True(t, errors.As(err, &cfgErr))
	})

	t.Run("join failure", func(t *testing.T) {
		tables := scenarioTables()
		tables.ARS = nil
		result, err := RunBidding(tables, DefaultConfig())
		check.Nil(t, result)

		var joinErr *JoinIntegrityError
		check.True(t, errors.As(err, &joinErr))
		check.Equal(t, 3, len(joinErr.Violations))
	})

	t.Run("negative estimate fails output check", func(t *testing.T) {
		tables := scenarioTables()
		tables.Performance = nil
		tables.Attributes[0].EstFirstPositionBid = -2
		tables.Attributes[0].QualityScore = 9
		result, err := RunBidding(tables, DefaultConfig())
		check.Nil(t, result)

		var rangeErr *BidRangeError
		assert.True(t, errors.As(err, &rangeErr))
		check.Equal(t, "exact", rangeErr.Violations[0].KeywordID)
	})
}

func TestRunBidding_EmittedBidsStayWithinCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapBid = 8.35

	result, err := RunBidding(scenarioTables(), cfg)
	assert.NoError(t, err)

	for _, row := range UploadRows(result.Bids, cfg.BidPrecision) {
		bid, err := strconv.ParseFloat(row.Bid, 64)
		assert.NoError(t, err)
		check.True(t, BidWithinRange(bid, cfg.CapBid))
	}
}
