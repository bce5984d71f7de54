package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/kwbidder/bidapi"
)

// ExtractCOSEPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
// Returns the payload bytes (element 2)
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	var coseArray []any
	err := cbor.Unmarshal(coseBytes, &coseArray)
	if err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}

// ParseManifest reads the RunManifest out of a signed manifest without verifying the
// signature.
func ParseManifest(manifest bidapi.ManifestCOSE) (*bidapi.RunManifest, error) {
	payload, err := ExtractCOSEPayload(manifest)
	if err != nil {
		return nil, err
	}
	return bidapi.UnmarshalManifest(payload)
}
