package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/auth0/go-idtoken/core"
)

const (
	// segmentSeparator joins the header, payload and signature segments.
	segmentSeparator = "."

	// maxTokenSize bounds the input before any splitting or decoding.
	// Valid ID tokens rarely exceed a few KB.
	maxTokenSize = 1024 * 1024
)

// CompactToken is a decoded JWS compact token. It keeps the encoded header
// and payload segments next to their decoded form: signatures are verified
// over the original bytes, never over a re-serialization.
type CompactToken struct {
	header       map[string]any
	payload      map[string]any
	rawHeader    string
	rawPayload   string
	signingInput []byte
	signature    []byte
}

// Decode splits and decodes a compact token. It fails with a
// core.ErrMalformedToken error unless the token has exactly three non-empty
// base64url segments whose header and payload decode to JSON objects and
// whose header carries a string "alg".
func Decode(tokenString string) (*CompactToken, error) {
	if len(tokenString) > maxTokenSize {
		return nil, malformed("token exceeds maximum size", nil)
	}

	// jws.SplitCompactString ignores anything past the third segment.
	if strings.Count(tokenString, segmentSeparator) != 2 {
		return nil, malformed("token must have exactly 3 segments", nil)
	}
	rawHeader, rawPayload, rawSignature, err := jws.SplitCompactString(tokenString)
	if err != nil {
		return nil, malformed("token must have exactly 3 segments", err)
	}
	for i, segment := range [][]byte{rawHeader, rawPayload, rawSignature} {
		if len(segment) == 0 {
			return nil, malformed(fmt.Sprintf("token segment %d is empty", i), nil)
		}
		if bytes.ContainsAny(segment, "\r\n") {
			return nil, malformed(fmt.Sprintf("token segment %d contains a line break", i), nil)
		}
	}

	header, err := decodeObject(rawHeader)
	if err != nil {
		return nil, malformed("could not decode header", err)
	}
	if _, ok := header["alg"].(string); !ok {
		return nil, malformed(`header is missing a string "alg"`, nil)
	}

	payload, err := decodeObject(rawPayload)
	if err != nil {
		return nil, malformed("could not decode payload", err)
	}

	signature, err := decodeSegment(rawSignature)
	if err != nil {
		return nil, malformed("could not decode signature", err)
	}

	return &CompactToken{
		header:       header,
		payload:      payload,
		rawHeader:    string(rawHeader),
		rawPayload:   string(rawPayload),
		signingInput: []byte(tokenString[:len(rawHeader)+1+len(rawPayload)]),
		signature:    signature,
	}, nil
}

// Algorithm returns the header's "alg" value exactly as sent.
func (t *CompactToken) Algorithm() string {
	alg, _ := t.header["alg"].(string)
	return alg
}

// KeyID returns the header's "kid", or "" when absent or not a string.
func (t *CompactToken) KeyID() string {
	kid, _ := t.header["kid"].(string)
	return kid
}

// Header returns a copy of the decoded header.
func (t *CompactToken) Header() map[string]any {
	return maps.Clone(t.header)
}

// Payload returns a copy of the decoded claims.
func (t *CompactToken) Payload() map[string]any {
	return maps.Clone(t.payload)
}

// RawHeader returns the header segment as it appeared in the token.
func (t *CompactToken) RawHeader() string { return t.rawHeader }

// RawPayload returns the payload segment as it appeared in the token.
func (t *CompactToken) RawPayload() string { return t.rawPayload }

// SigningInput returns the exact bytes the signature covers.
func (t *CompactToken) SigningInput() []byte {
	return bytes.Clone(t.signingInput)
}

// Signature returns the decoded signature bytes.
func (t *CompactToken) Signature() []byte {
	return bytes.Clone(t.signature)
}

// segmentEncoding rejects padding and non-zero trailing bits, so every
// decoded value has exactly one accepted encoding.
var segmentEncoding = base64.RawURLEncoding.Strict()

func decodeSegment(segment []byte) ([]byte, error) {
	out := make([]byte, segmentEncoding.DecodedLen(len(segment)))
	n, err := segmentEncoding.Decode(out, segment)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func decodeObject(segment []byte) (map[string]any, error) {
	raw, err := decodeSegment(segment)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, err
	}
	if object == nil {
		return nil, fmt.Errorf("segment is not a JSON object")
	}
	if decoder.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	return object, nil
}

func malformed(message string, details error) error {
	return core.NewValidationError(core.ErrorCodeMalformedToken, message, details)
}
