package core

import (
	"fmt"
	"strings"
)

// MatchType is the keyword match type reported by the ad platform.
type MatchType string

const (
	MatchExact  MatchType = "Exact"
	MatchPhrase MatchType = "Phrase"
	MatchBroad  MatchType = "Broad"
)

// ParseMatchType normalizes a match type label, ignoring case and surrounding whitespace.
func ParseMatchType(s string) (MatchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, nil
	case "phrase":
		return MatchPhrase, nil
	case "broad":
		return MatchBroad, nil
	default:
		return "", fmt.Errorf("unknown match type %q", s)
	}
}

// KeywordAttributes holds the static keyword settings with the market, make, model
// and year already extracted from the ad group name.
type KeywordAttributes struct {
	KeywordID           string    `json:"keyword_id"`
	Keyword             string    `json:"keyword,omitempty"`
	AdGroup             string    `json:"ad_group"`
	Campaign            string    `json:"campaign"`
	MatchType           MatchType `json:"match_type"`
	QualityScore        int       `json:"quality_score"`
	EstFirstPositionBid float64   `json:"est_first_position_bid"`
	EstTopOfPageBid     float64   `json:"est_top_of_page_bid"`
	Market              string    `json:"market"`
	Make                string    `json:"make"`
	Model               string    `json:"model"`
	Year                string    `json:"year"`
}

// KeywordPerformance holds trailing performance counters for one keyword.
type KeywordPerformance struct {
	KeywordID   string  `json:"keyword_id"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Cost        float64 `json:"cost"`
	Conversions float64 `json:"conversions"`
}

// ModelARS is the annual revenue per sale for a make/model.
type ModelARS struct {
	Make  string  `json:"make"`
	Model string  `json:"model"`
	ARS   float64 `json:"ars"`
}

// InventoryLevel is an inventory count for a make/model/year.
type InventoryLevel struct {
	Make  string  `json:"make"`
	Model string  `json:"model"`
	Year  string  `json:"year"`
	Count float64 `json:"count"`
}

// ReferenceTables are the read-only inputs to the join.
type ReferenceTables struct {
	Attributes          []KeywordAttributes
	Performance         []KeywordPerformance
	ARS                 []ModelARS
	CurrentInventory    []InventoryLevel
	HistoricalInventory []InventoryLevel
}

// BidTier identifies which granularity the initial bid was derived from.
type BidTier int

const (
	TierUnset BidTier = iota
	TierKeyword
	TierAdGroup
	TierMakeModelYear
	TierMakeModel
	TierFirstPositionEstimate
)

func (t BidTier) String() string {
	switch t {
	case TierKeyword:
		return "keyword"
	case TierAdGroup:
		return "ad_group"
	case TierMakeModelYear:
		return "make_model_year"
	case TierMakeModel:
		return "make_model"
	case TierFirstPositionEstimate:
		return "first_position_estimate"
	default:
		return "unset"
	}
}

// LevelTotals are the conversion and click sums of the group a record belongs to.
type LevelTotals struct {
	Conversions float64 `json:"conversions"`
	Clicks      float64 `json:"clicks"`
	CVR         Rate    `json:"cvr"`
}

// Aggregates holds the conversion metrics broadcast onto a record.
type Aggregates struct {
	KeywordCVR    Rate        `json:"keyword_cvr"`
	AdGroup       LevelTotals `json:"ad_group"`
	MakeModelYear LevelTotals `json:"make_model_year"`
	MakeModel     LevelTotals `json:"make_model"`
	Market        LevelTotals `json:"market"`
}

// AdjustmentTrace records one adjustment rule that fired on a record.
type AdjustmentTrace struct {
	Rule   string  `json:"rule"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// KeywordRecord is the unified per-keyword row produced by the join and enriched by
// every later stage.
type KeywordRecord struct {
	KeywordAttributes

	// Performance counters; zero when the keyword had no performance row.
	Impressions    float64 `json:"impressions"`
	Clicks         float64 `json:"clicks"`
	Cost           float64 `json:"cost"`
	Conversions    float64 `json:"conversions"`
	HasPerformance bool    `json:"has_performance"`

	ARS                    float64  `json:"ars"`
	CurrentInventory       *float64 `json:"current_inventory,omitempty"`
	HistoricalAvgInventory *float64 `json:"historical_avg_inventory,omitempty"`

	Metrics Aggregates `json:"metrics"`

	Tier        BidTier           `json:"tier"`
	Bid         float64           `json:"bid"`
	Adjustments []AdjustmentTrace `json:"adjustments,omitempty"`
	MinExactBid *float64          `json:"min_exact_bid,omitempty"`
}

// KeywordBid is one row of the bid upload.
type KeywordBid struct {
	KeywordID string  `json:"keyword_id"`
	Bid       float64 `json:"bid"`
}

// UploadRow is a KeywordBid as it is written to the upload file.
type UploadRow struct {
	KeywordID string `json:"keyword_id"`
	Bid       string `json:"bid"`
}

// BiddingResult contains the complete output of one pipeline run.
type BiddingResult struct {
	// Records are the fully enriched rows in attribute-input order
	Records []KeywordRecord

	// Bids is the (keyword id, bid) output in the same order as Records
	Bids []KeywordBid

	// OverallCVR is the account-wide conversion rate used by the market adjustment
	OverallCVR Rate

	// ExactFloors maps ad group to the minimum pass-one Exact bid
	ExactFloors map[string]float64

	TierCounts       map[BidTier]int
	AdjustmentCounts map[string]int
}
