package bidapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Manifest file encodings.
const (
	EncodingRaw       = "raw"       // COSE_Sign1 bytes
	EncodingBase64    = "base64"    // standard base64 text
	EncodingBase64URL = "base64url" // unpadded URL-safe base64 text
	EncodingGzip      = "gzip"      // gzip, then unpadded URL-safe base64 text
)

// ManifestEncodings lists the accepted values of an encoding setting.
var ManifestEncodings = []string{EncodingRaw, EncodingBase64, EncodingBase64URL, EncodingGzip}

// cborArray4 is the initial byte of a CBOR array with four elements.
const cborArray4 = 0x84

var gzipMagic = []byte{0x1f, 0x8b}

// ManifestCOSE is a raw untagged COSE_Sign1 message carrying a CBOR RunManifest.
type ManifestCOSE []byte

// ManifestCOSEBase64 is a ManifestCOSE in standard or URL-safe base64.
type ManifestCOSEBase64 string

// ManifestCOSEGzip is a gzip-compressed ManifestCOSE in unpadded URL-safe base64.
type ManifestCOSEGzip string

// EncodeBase64 encodes the COSE bytes with standard base64.
func (c ManifestCOSE) EncodeBase64() ManifestCOSEBase64 {
	return ManifestCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

// EncodeURLSafe encodes the COSE bytes with unpadded URL-safe base64.
func (c ManifestCOSE) EncodeURLSafe() ManifestCOSEBase64 {
	return ManifestCOSEBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip compresses the COSE bytes and encodes them URL-safe.
func (c ManifestCOSE) CompressGzip() (ManifestCOSEGzip, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(c); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return ManifestCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (b ManifestCOSEBase64) String() string {
	return string(b)
}

// Decode accepts standard, URL-safe, padded and unpadded base64.
func (b ManifestCOSEBase64) Decode() (ManifestCOSE, error) {
	s := string(b)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil {
			return ManifestCOSE(data), nil
		}
	}
	return nil, fmt.Errorf("decode manifest: not valid base64")
}

func (g ManifestCOSEGzip) String() string {
	return string(g)
}

// Decompress reverses CompressGzip.
func (g ManifestCOSEGzip) Decompress() (ManifestCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode gzip base64: %w", err)
	}
	return gunzip(compressed)
}

func gunzip(compressed []byte) (ManifestCOSE, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	return ManifestCOSE(data), nil
}

// EncodeFile renders the manifest for writing to disk in the given encoding.
func (c ManifestCOSE) EncodeFile(encoding string) ([]byte, error) {
	switch encoding {
	case EncodingRaw, "":
		return c, nil
	case EncodingBase64:
		return []byte(c.EncodeBase64()), nil
	case EncodingBase64URL:
		return []byte(c.EncodeURLSafe()), nil
	case EncodingGzip:
		compressed, err := c.CompressGzip()
		if err != nil {
			return nil, err
		}
		return []byte(compressed), nil
	default:
		return nil, fmt.Errorf("unknown manifest encoding %q", encoding)
	}
}

// DecodeFile reads a manifest file written in any of the ManifestEncodings.
func DecodeFile(data []byte) (ManifestCOSE, error) {
	if len(data) > 0 && data[0] == cborArray4 {
		return ManifestCOSE(data), nil
	}

	decoded, err := ManifestCOSEBase64(strings.TrimSpace(string(data))).Decode()
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(decoded, gzipMagic) {
		return gunzip(decoded)
	}
	return decoded, nil
}
