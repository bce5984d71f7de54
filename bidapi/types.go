package bidapi

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/kwbidder/core"
)

// RunManifest describes one bid upload: what configuration produced it, how the bids
// were derived, and a digest of the upload file rows.
type RunManifest struct {
	// RunID uniquely identifies the run
	RunID string `json:"run_id"`

	// Timestamp when the manifest was generated
	Timestamp time.Time `json:"timestamp"`

	// Config is the set of constants the run used
	Config      core.Config `json:"config"`
	ConfigHash  string      `json:"config_hash"`
	ConfigNonce string      `json:"config_nonce"`

	OverallCVR       core.Rate      `json:"overall_cvr"`
	KeywordCount     int            `json:"keyword_count"`
	TierCounts       map[string]int `json:"tier_counts"`
	AdjustmentCounts map[string]int `json:"adjustment_counts"`
	ExactFloorCount  int            `json:"exact_floor_count"`

	// UploadFile is the base name of the upload file the digest covers
	UploadFile  string `json:"upload_file"`
	UploadHash  string `json:"upload_hash"`
	UploadNonce string `json:"upload_nonce"`
}

var manifestEncMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("bidapi: invalid CBOR encoding options: %v", err))
	}
	return em
}()

// MarshalManifest encodes a manifest as deterministic CBOR.
func MarshalManifest(m *RunManifest) ([]byte, error) {
	data, err := manifestEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest decodes a CBOR manifest.
func UnmarshalManifest(data []byte) (*RunManifest, error) {
	var m RunManifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// TierCountsByName converts tier counts to their string labels for the manifest.
func TierCountsByName(counts map[core.BidTier]int) map[string]int {
	named := make(map[string]int, len(counts))
	for tier, count := range counts {
		named[tier.String()] = count
	}
	return named
}
