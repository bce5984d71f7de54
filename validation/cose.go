package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/kwbidder/bidapi"
)

// ParsePublicKeyPEM parses a PKIX "PUBLIC KEY" PEM block holding an ECDSA key
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("public key is not PEM encoded")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	ecdsaKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

// VerifyCOSESignature verifies an untagged ES384 COSE_Sign1 manifest against a public key
func VerifyCOSESignature(manifest bidapi.ManifestCOSE, publicKey *ecdsa.PublicKey) error {
	// Untagged COSE_Sign1 (4-element array): [protected, unprotected, payload, signature]
	var coseArray []any
	err := cbor.Unmarshal(manifest, &coseArray)
	if err != nil {
		return fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	// Extract components
	protectedBytes, ok := coseArray[0].([]byte)
	if !ok {
		return fmt.Errorf("invalid protected headers")
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return fmt.Errorf("invalid payload")
	}

	signature, ok := coseArray[3].([]byte)
	if !ok {
		return fmt.Errorf("invalid signature")
	}

	// Create Sig_structure for COSE_Sign1: ["Signature1", protected, external_aad, payload]
	// Manifests carry no external_aad
	sigStructure := []any{
		"Signature1",
		protectedBytes,
		[]byte{}, // empty external_aad
		payload,
	}

	sigStructureBytes, err := cbor.Marshal(sigStructure)
	if err != nil {
		return fmt.Errorf("marshal Sig_structure: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	err = verifier.Verify(sigStructureBytes, signature)
	if err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}

	return nil
}
