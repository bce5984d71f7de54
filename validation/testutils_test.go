package validation

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/core"
	"github.com/cloudx-io/kwbidder/signing"
)

type signedRun struct {
	manifest     bidapi.ManifestCOSE
	publicKeyPEM string
	rows         []core.UploadRow
	config       core.Config
}

func newSignedRun(t *testing.T) signedRun {
	t.Helper()

	cfg := core.DefaultConfig()
	result := &core.BiddingResult{
		Records:          make([]core.KeywordRecord, 3),
		Bids:             []core.KeywordBid{{KeywordID: "1001", Bid: 9}, {KeywordID: "1002", Bid: 11.004}, {KeywordID: "1003", Bid: 9}},
		OverallCVR:       core.NewRate(1, 20),
		ExactFloors:      map[string]float64{"DAL_Toyota_Camry_2019": 9},
		TierCounts:       map[core.BidTier]int{core.TierKeyword: 3},
		AdjustmentCounts: map[string]int{},
	}
	rows := core.UploadRows(result.Bids, cfg.BidPrecision)

	km, err := signing.NewKeyManager()
	assert.NoError(t, err)
	publicKeyPEM, err := km.PublicKeyPEM()
	assert.NoError(t, err)

	manifest, err := signing.BuildManifest(result, cfg, rows, "bid_upload_file.csv", time.Now())
	assert.NoError(t, err)
	signed, err := signing.SignManifest(km, manifest)
	assert.NoError(t, err)

	return signedRun{manifest: signed, publicKeyPEM: publicKeyPEM, rows: rows, config: cfg}
}

func (r signedRun) input() *ManifestValidationInput {
	rows := append([]core.UploadRow(nil), r.rows...)
	return &ManifestValidationInput{
		ManifestCOSE: r.manifest,
		PublicKeyPEM: r.publicKeyPEM,
		Rows:         rows,
	}
}
