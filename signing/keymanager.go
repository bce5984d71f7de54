package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/veraison/go-cose"
)

// KeyManager holds the ECDSA P-384 key pair that signs run manifests
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
}

// NewKeyManager creates a new KeyManager with a freshly generated key pair
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// LoadKeyManager reads a PEM encoded P-384 private key in SEC 1 ("EC PRIVATE KEY")
// or PKCS #8 ("PRIVATE KEY") form.
func LoadKeyManager(path string) (*KeyManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM parses the PEM forms accepted by LoadKeyManager.
func ParsePrivateKeyPEM(data []byte) (*KeyManager, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signing key is not PEM encoded")
	}

	var privateKey *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is %T, want ECDSA", key)
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}

	if privateKey.Curve != elliptic.P384() {
		return nil, fmt.Errorf("signing key curve is %s, want P-384", privateKey.Curve.Params().Name)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PrivateKeyPEM returns the private key in SEC 1 PEM format
func (km *KeyManager) PrivateKeyPEM() (string, error) {
	derBytes, err := x509.MarshalECPrivateKey(km.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: derBytes})), nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

func (km *KeyManager) signer() (cose.Signer, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES384, km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return signer, nil
}
