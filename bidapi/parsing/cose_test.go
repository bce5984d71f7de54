package parsing

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/kwbidder/bidapi"
)

func TestExtractCOSEPayload(t *testing.T) {
	coseBytes, err := cbor.Marshal([]any{[]byte{0xa0}, map[any]any{}, []byte("payload"), []byte("signature")})
	assert.NoError(t, err)

	payload, err := ExtractCOSEPayload(coseBytes)
	assert.NoError(t, err)
	check.Equal(t, "payload", string(payload))
}

func TestExtractCOSEPayload_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "not an array", value: "hello"},
		{name: "wrong length", value: []any{[]byte{}, []byte("payload")}},
		{name: "payload not bytes", value: []any{[]byte{}, map[any]any{}, "payload", []byte("sig")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := cbor.Marshal(tt.value)
			assert.NoError(t, err)

			_, err = ExtractCOSEPayload(data)
			check.Error(t, err)
		})
	}
}

func TestParseManifest(t *testing.T) {
	manifest := &bidapi.RunManifest{RunID: "run-1", KeywordCount: 5, UploadHash: "abc"}
	payload, err := bidapi.MarshalManifest(manifest)
	assert.NoError(t, err)

	coseBytes, err := cbor.Marshal([]any{[]byte{0xa0}, map[any]any{}, payload, []byte("signature")})
	assert.NoError(t, err)

	parsed, err := ParseManifest(coseBytes)
	assert.NoError(t, err)
	check.Equal(t, "run-1", parsed.RunID)
	check.Equal(t, 5, parsed.KeywordCount)
	check.Equal(t, "abc", parsed.UploadHash)
}
