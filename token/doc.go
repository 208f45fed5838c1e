// Package token decodes JWS compact tokens (header.payload.signature) without
// verifying them. Verification belongs to the validator package, which works
// on the exact SigningInput bytes kept by CompactToken.
package token
