package bidapi

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/kwbidder/core"
)

func sampleManifest() *RunManifest {
	return &RunManifest{
		RunID:            "2b1f4c2e-7a0e-4b8a-9d55-1f0e8d1c6a77",
		Timestamp:        time.Date(2026, 3, 2, 6, 30, 0, 123000000, time.UTC),
		Config:           core.DefaultConfig(),
		ConfigHash:       "abc123",
		ConfigNonce:      "nonce-config",
		OverallCVR:       core.NewRate(1, 20),
		KeywordCount:     3,
		TierCounts:       map[string]int{"keyword": 2, "first_position_estimate": 1},
		AdjustmentCounts: map[string]int{core.RuleHardCap: 1},
		ExactFloorCount:  1,
		UploadFile:       "bid_upload_file.csv",
		UploadHash:       "def456",
		UploadNonce:      "nonce-upload",
	}
}

func TestManifestRoundTrip(t *testing.T) {
	original := sampleManifest()

	data, err := MarshalManifest(original)
	assert.NoError(t, err)

	decoded, err := UnmarshalManifest(data)
	assert.NoError(t, err)

	check.Equal(t, original.RunID, decoded.RunID)
	check.True(t, original.Timestamp.Equal(decoded.Timestamp))
	check.Equal(t, original.Config, decoded.Config)
	check.Equal(t, original.OverallCVR, decoded.OverallCVR)
	check.Equal(t, original.TierCounts, decoded.TierCounts)
	check.Equal(t, original.AdjustmentCounts, decoded.AdjustmentCounts)
	check.Equal(t, original.UploadHash, decoded.UploadHash)
	check.Equal(t, original.UploadNonce, decoded.UploadNonce)
}

func TestMarshalManifest_Deterministic(t *testing.T) {
	m := sampleManifest()
	m.TierCounts = map[string]int{"make_model": 1, "keyword": 4, "ad_group": 2, "first_position_estimate": 7}

	first, err := MarshalManifest(m)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalManifest(m)
		assert.NoError(t, err)
		check.Equal(t, first, again)
	}
}

func TestUnmarshalManifest_Invalid(t *testing.T) {
	_, err := UnmarshalManifest([]byte{0xff, 0x00})
	check.Error(t, err)
}

func TestTierCountsByName(t *testing.T) {
	named := TierCountsByName(map[core.BidTier]int{
		core.TierKeyword:               2,
		core.TierFirstPositionEstimate: 1,
	})
	check.Equal(t, map[string]int{"keyword": 2, "first_position_estimate": 1}, named)
}
