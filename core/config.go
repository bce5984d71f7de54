package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultMinConversionThreshold = 10.0
	DefaultCapBid                 = 12.0
	DefaultBidPrecision           = 2
)

// Config holds the tunable constants of a run. It is built once and passed by value
// through every stage.
type Config struct {
	// MinConversionThreshold is the conversion count a granularity must strictly exceed
	// before its CVR is trusted as a bid basis.
	MinConversionThreshold float64 `json:"min_conv_thres"`

	// CapBid is the absolute bid ceiling.
	CapBid float64 `json:"cap_bid_thres"`

	// BidPrecision is the number of decimals written to the upload file.
	BidPrecision int32 `json:"bid_precision"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinConversionThreshold: DefaultMinConversionThreshold,
		CapBid:                 DefaultCapBid,
		BidPrecision:           DefaultBidPrecision,
	}
}

// ConfigError lists every invalid setting.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid bidding config: %s", strings.Join(e.Problems, "; "))
}

// Validate checks that the constants can produce a bounded, non-negative bid.
func (c Config) Validate() error {
	var problems []string
	if c.MinConversionThreshold < 0 {
		problems = append(problems, fmt.Sprintf("min_conv_thres must be non-negative, got %v", c.MinConversionThreshold))
	}
	if c.CapBid <= 0 {
		problems = append(problems, fmt.Sprintf("cap_bid_thres must be positive, got %v", c.CapBid))
	}
	if c.BidPrecision < 0 || c.BidPrecision > 6 {
		problems = append(problems, fmt.Sprintf("bid_precision must be between 0 and 6, got %d", c.BidPrecision))
	} else if c.CapBid > 0 && !representable(c.CapBid, c.BidPrecision) {
		// a capped bid would round above the cap when written
		problems = append(problems, fmt.Sprintf("cap_bid_thres %v cannot be written exactly with bid_precision %d", c.CapBid, c.BidPrecision))
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// representable reports whether value survives rounding to precision decimals.
func representable(value float64, precision int32) bool {
	d := decimal.NewFromFloat(value)
	return d.Equal(d.Round(precision))
}

// RunParams is the read-only context threaded through the bid stages: the config
// plus the account-wide CVR derived once from the performance table.
type RunParams struct {
	Config
	OverallCVR Rate
}
