package validation

import (
	"github.com/cloudx-io/kwbidder/bidapi"
	"github.com/cloudx-io/kwbidder/core"
)

// ManifestValidationInput contains everything needed to check an upload file against
// its signed manifest
type ManifestValidationInput struct {
	ManifestCOSE bidapi.ManifestCOSE
	PublicKeyPEM string           // PEM-encoded ES384 public key of the signer
	Rows         []core.UploadRow // Rows of the upload file, in file order

	// ExpectedConfig, when set, must match the configuration recorded in the manifest
	ExpectedConfig *core.Config
}

// ManifestValidationResult contains the outcome of every manifest check
type ManifestValidationResult struct {
	SignatureValid    bool
	ConfigHashValid   bool
	UploadHashValid   bool
	RowCountValid     bool
	BidRangeValid     bool
	Manifest          *bidapi.RunManifest
	ValidationDetails []string
}

// IsValid returns true if all manifest validation checks passed
func (r *ManifestValidationResult) IsValid() bool {
	return r.SignatureValid && r.ConfigHashValid && r.UploadHashValid && r.RowCountValid && r.BidRangeValid
}
