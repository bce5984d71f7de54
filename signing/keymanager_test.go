package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNewKeyManager(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	assert.NotNil(t, km)
	assert.NotNil(t, km.privateKey)
	assert.NotNil(t, km.PublicKey)
	check.Equal(t, "P-384", km.PublicKey.Curve.Params().Name)
}

func TestKeyManager_PublicKeyPEM(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)

	pemStr, err := km.PublicKeyPEM()
	assert.NoError(t, err)

	// Verify PEM format
	check.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))
	check.True(t, strings.HasSuffix(strings.TrimSpace(pemStr), "-----END PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	assert.NotNil(t, block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	assert.NoError(t, err)
	ecPub, ok := pub.(*ecdsa.PublicKey)
	assert.True(t, ok)
	check.True(t, ecPub.Equal(km.PublicKey))
}

func TestKeyManager_UniqueKeys(t *testing.T) {
	km1, _ := NewKeyManager()
	km2, _ := NewKeyManager()

	pem1, _ := km1.PublicKeyPEM()
	pem2, _ := km2.PublicKeyPEM()

	check.NotEqual(t, pem1, pem2)
}

func TestLoadKeyManager_SEC1(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)

	privatePEM, err := km.PrivateKeyPEM()
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signing.pem")
	assert.NoError(t, os.WriteFile(path, []byte(privatePEM), 0o600))

	loaded, err := LoadKeyManager(path)
	assert.NoError(t, err)
	check.True(t, loaded.PublicKey.Equal(km.PublicKey))
}

func TestParsePrivateKeyPEM_PKCS8(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	assert.NoError(t, err)

	km, err := ParsePrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	assert.NoError(t, err)
	check.True(t, km.PublicKey.Equal(&key.PublicKey))
}

func TestParsePrivateKeyPEM_Errors(t *testing.T) {
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.NoError(t, err)
	p256DER, err := x509.MarshalECPrivateKey(p256)
	assert.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{name: "not PEM", data: []byte("hello"), wantErr: "not PEM encoded"},
		{name: "wrong block", data: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}), wantErr: "unsupported PEM block"},
		{name: "garbage key", data: pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1, 2, 3}}), wantErr: "parse EC private key"},
		{name: "wrong curve", data: pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: p256DER}), wantErr: "want P-384"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrivateKeyPEM(tt.data)
			assert.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.wantErr))
		})
	}
}

func TestLoadKeyManager_MissingFile(t *testing.T) {
	_, err := LoadKeyManager(filepath.Join(t.TempDir(), "absent.pem"))
	check.Error(t, err)
}
