package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/bidapi/parsing"
	"github.com/cloudx-io/kwbidder/core"
)

// ValidateManifest verifies a signed run manifest and checks an upload file against it:
// - Manifest signature verifies under the given public key
// - Config hash matches the recorded config (and ExpectedConfig when given)
// - Upload hash recomputed from the rows matches
// - Row count matches the keyword count
// - Every bid parses and lies within [0, cap_bid_thres]
//
// Returns:
//   - ManifestValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed manifest or public key)
func ValidateManifest(input *ManifestValidationInput) (*ManifestValidationResult, error) {
	if input == nil {
		return nil, fmt.Errorf("validation input is nil")
	}

	publicKey, err := ParsePublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	manifest, err := parsing.ParseManifest(input.ManifestCOSE)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	result := &ManifestValidationResult{Manifest: manifest}

	if err := VerifyCOSESignature(input.ManifestCOSE, publicKey); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature invalid: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Signature verified (ES384)")
	}

	result.ConfigHashValid = validateConfigHash(input, manifest, result)
	result.UploadHashValid = validateUploadHash(input, manifest, result)
	result.RowCountValid = validateRowCount(input, manifest, result)
	result.BidRangeValid = validateBidRange(input, manifest, result)

	return result, nil
}

func validateConfigHash(input *ManifestValidationInput, manifest *bidapi.RunManifest, result *ManifestValidationResult) bool {
	if manifest.ConfigNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Config nonce missing from manifest")
		return false
	}

	computedHash := core.ComputeConfigHash(manifest.Config, manifest.ConfigNonce)
	if computedHash != manifest.ConfigHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Config hash mismatch: computed %s, manifest has %s", computedHash, manifest.ConfigHash))
		return false
	}

	if input.ExpectedConfig != nil && *input.ExpectedConfig != manifest.Config {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Config mismatch: expected %+v, manifest has %+v", *input.ExpectedConfig, manifest.Config))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Config hash validation passed: %s", computedHash))
	return true
}

func validateUploadHash(input *ManifestValidationInput, manifest *bidapi.RunManifest, result *ManifestValidationResult) bool {
	if manifest.UploadNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Upload nonce missing from manifest")
		return false
	}

	computedHash := core.ComputeUploadHash(input.Rows, manifest.UploadNonce)
	if computedHash == manifest.UploadHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Upload hash validation passed: %s", computedHash))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Upload hash mismatch: computed %s, manifest has %s", computedHash, manifest.UploadHash))
	return false
}

func validateRowCount(input *ManifestValidationInput, manifest *bidapi.RunManifest, result *ManifestValidationResult) bool {
	if len(input.Rows) == manifest.KeywordCount {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Row count validation passed: %d", manifest.KeywordCount))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Row count mismatch: upload has %d, manifest has %d", len(input.Rows), manifest.KeywordCount))
	return false
}

func validateBidRange(input *ManifestValidationInput, manifest *bidapi.RunManifest, result *ManifestValidationResult) bool {
	valid := true
	for _, row := range input.Rows {
		bid, err := decimal.NewFromString(row.Bid)
		if err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid for keyword %s is not a number: %q", row.KeywordID, row.Bid))
			valid = false
			continue
		}
		value, _ := bid.Float64()
		if !core.BidWithinRange(value, manifest.Config.CapBid) {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid for keyword %s outside [0, %v]: %s", row.KeywordID, manifest.Config.CapBid, row.Bid))
			valid = false
		}
	}

	if valid {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid range validation passed: %d bids within [0, %v]", len(input.Rows), manifest.Config.CapBid))
	}
	return valid
}
