package core

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBid renders a bid with a fixed number of decimals, rounding half away from zero.
func FormatBid(bid float64, precision int32) string {
	return decimal.NewFromFloat(bid).StringFixed(precision)
}

// UploadRows formats bids as they are written to the upload file.
func UploadRows(bids []KeywordBid, precision int32) []UploadRow {
	rows := make([]UploadRow, len(bids))
	for i, bid := range bids {
		rows[i] = UploadRow{KeywordID: bid.KeywordID, Bid: FormatBid(bid.Bid, precision)}
	}
	return rows
}

// ComputeUploadHash computes the digest of an upload file's rows.
//
// Formula: SHA256(nonce + "|" + kw_id1 + ":" + bid1 + "|" + kw_id2 + ":" + bid2 ...)
//
// Rows are hashed in file order using their formatted bid strings, so the digest can be
// recomputed from the upload file alone.
func ComputeUploadHash(rows []UploadRow, nonce string) string {
	var sb strings.Builder
	sb.WriteString(nonce)
	for _, row := range rows {
		sb.WriteString("|")
		sb.WriteString(row.KeywordID)
		sb.WriteString(":")
		sb.WriteString(row.Bid)
	}
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", hash)
}

// ComputeConfigHash computes the digest of the tunable constants of a run.
//
// Formula: SHA256(nonce + "|" + sorted_key_value_pairs)
//
// Values are formatted to exactly 6 decimal places for consistent hashing.
func ComputeConfigHash(cfg Config, nonce string) string {
	values := map[string]float64{
		"bid_precision":  float64(cfg.BidPrecision),
		"cap_bid_thres":  cfg.CapBid,
		"min_conv_thres": cfg.MinConversionThreshold,
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	data := nonce
	for _, key := range keys {
		data += fmt.Sprintf("|%s:%.6f", key, values[key])
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
