package signing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/core"
)

// generateSecureRandomBytes generates cryptographically secure random bytes
func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32) // 256 bits of entropy
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// BuildManifest describes a completed run. rows must be exactly the rows written to
// uploadFile, in file order.
func BuildManifest(result *core.BiddingResult, cfg core.Config, rows []core.UploadRow, uploadFile string, now time.Time) (*bidapi.RunManifest, error) {
	if result == nil {
		return nil, fmt.Errorf("bidding result is nil")
	}

	configNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate config nonce: %w", err)
	}

	uploadNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload nonce: %w", err)
	}

	return &bidapi.RunManifest{
		RunID:            uuid.NewString(),
		Timestamp:        now.UTC(),
		Config:           cfg,
		ConfigHash:       core.ComputeConfigHash(cfg, configNonce),
		ConfigNonce:      configNonce,
		OverallCVR:       result.OverallCVR,
		KeywordCount:     len(result.Records),
		TierCounts:       bidapi.TierCountsByName(result.TierCounts),
		AdjustmentCounts: result.AdjustmentCounts,
		ExactFloorCount:  len(result.ExactFloors),
		UploadFile:       uploadFile,
		UploadHash:       core.ComputeUploadHash(rows, uploadNonce),
		UploadNonce:      uploadNonce,
	}, nil
}

// SignManifest encodes the manifest as CBOR and signs it as an untagged ES384
// COSE_Sign1 message.
func SignManifest(km *KeyManager, manifest *bidapi.RunManifest) (bidapi.ManifestCOSE, error) {
	if km == nil {
		return nil, fmt.Errorf("key manager is nil")
	}

	payload, err := bidapi.MarshalManifest(manifest)
	if err != nil {
		return nil, err
	}

	signer, err := km.signer()
	if err != nil {
		return nil, err
	}

	msg := cose.UntaggedSign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: cose.AlgorithmES384,
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign manifest: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}

	return bidapi.ManifestCOSE(coseBytes), nil
}
