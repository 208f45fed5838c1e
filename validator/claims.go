package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/auth0/go-idtoken/core"
)

// Claims is the verified payload of an ID token. Values keep the types the
// decoder produced; numbers are json.Number.
type Claims map[string]any

// String returns the claim as a string.
func (c Claims) String(name string) (string, bool) {
	s, ok := c[name].(string)
	return s, ok
}

// Time returns a numeric date claim.
func (c Claims) Time(name string) (time.Time, bool) {
	v, ok := c[name]
	if !ok {
		return time.Time{}, false
	}
	return numericDate(v)
}

// Issuer returns the "iss" claim.
func (c Claims) Issuer() string {
	s, _ := c.String("iss")
	return s
}

// Subject returns the "sub" claim.
func (c Claims) Subject() string {
	s, _ := c.String("sub")
	return s
}

// Audience returns the "aud" claim as a list. Non-string entries are dropped.
func (c Claims) Audience() []string {
	switch aud := c["aud"].(type) {
	case string:
		return []string{aud}
	case []string:
		return slices.Clone(aud)
	case []any:
		out := make([]string, 0, len(aud))
		for _, v := range aud {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Nonce returns the "nonce" claim.
func (c Claims) Nonce() string {
	s, _ := c.String("nonce")
	return s
}

// AuthorizedParty returns the "azp" claim.
func (c Claims) AuthorizedParty() string {
	s, _ := c.String("azp")
	return s
}

// Expiry returns the "exp" claim.
func (c Claims) Expiry() (time.Time, bool) { return c.Time("exp") }

// IssuedAt returns the "iat" claim.
func (c Claims) IssuedAt() (time.Time, bool) { return c.Time("iat") }

// maxNumericDate is 9999-12-31T23:59:59Z. Larger values would overflow
// time.Unix and wrap into the past.
const maxNumericDate = 253402300799

func numericDate(v any) (time.Time, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return unixDate(i)
		}
		parsed, err := n.Float64()
		if err != nil {
			return time.Time{}, false
		}
		f = parsed
	case float64:
		f = n
	case int64:
		return unixDate(n)
	case int:
		return unixDate(int64(n))
	default:
		return time.Time{}, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxNumericDate {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

func unixDate(sec int64) (time.Time, bool) {
	if sec > maxNumericDate || sec < -maxNumericDate {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// ValidateClaims enforces req against claims at instant now. Checks run in
// a fixed order and the first failure is returned.
func ValidateClaims(claims Claims, req Requirements, now time.Time) error {
	skew := req.ClockSkew

	// Issuer
	iss, ok := claims.String("iss")
	if !ok || iss == "" {
		return claimError(core.ErrorCodeInvalidIssuer, "issuer (iss) claim must be a string present in the ID token")
	}
	if iss != req.Issuer {
		return claimError(core.ErrorCodeInvalidIssuer,
			fmt.Sprintf("issuer (iss) claim mismatch in the ID token; expected %q, found %q", req.Issuer, iss))
	}

	// Audience
	if _, present := claims["aud"]; !present {
		return claimError(core.ErrorCodeInvalidAudience, "audience (aud) claim must be a string or array of strings present in the ID token")
	}
	audiences := claims.Audience()
	if !slices.Contains(audiences, req.Audience) {
		return claimError(core.ErrorCodeInvalidAudience,
			fmt.Sprintf("audience (aud) claim mismatch in the ID token; expected %q but was not one of %q", req.Audience, audiences))
	}

	// Authorized party, only required when aud is ambiguous.
	if len(audiences) > 1 {
		azp, ok := claims.String("azp")
		if !ok || azp == "" {
			return claimError(core.ErrorCodeInvalidAuthorizedParty,
				"authorized party (azp) claim must be a string present in the ID token when audience (aud) claim has multiple values")
		}
		if azp != req.Audience {
			return claimError(core.ErrorCodeInvalidAuthorizedParty,
				fmt.Sprintf("authorized party (azp) claim mismatch in the ID token; expected %q, found %q", req.Audience, azp))
		}
	}

	// Expiry
	exp, ok := claims.Time("exp")
	if !ok {
		return claimError(core.ErrorCodeTokenExpired, "expiration time (exp) claim must be a number present in the ID token")
	}
	if now.After(exp.Add(skew)) {
		return claimError(core.ErrorCodeTokenExpired,
			fmt.Sprintf("expiration time (exp) claim error in the ID token; current time (%d) is after expiration time (%d)", now.Unix(), exp.Unix()))
	}

	// Issued at
	if _, ok := claims.Time("iat"); !ok {
		return claimError(core.ErrorCodeInvalidIssuedAt, "issued at (iat) claim must be a number present in the ID token")
	}

	// Not before
	if raw, present := claims["nbf"]; present {
		nbf, ok := numericDate(raw)
		if !ok {
			return claimError(core.ErrorCodeTokenNotYetValid, "not before (nbf) claim must be a number when present in the ID token")
		}
		if now.Before(nbf.Add(-skew)) {
			return claimError(core.ErrorCodeTokenNotYetValid,
				fmt.Sprintf("not before (nbf) claim error in the ID token; current time (%d) is before %d", now.Unix(), nbf.Unix()))
		}
	}

	// Nonce
	if req.Nonce != "" {
		nonce, ok := claims.String("nonce")
		if !ok || nonce == "" {
			return claimError(core.ErrorCodeNonceMismatch, "nonce (nonce) claim must be a string present in the ID token")
		}
		if nonce != req.Nonce {
			return claimError(core.ErrorCodeNonceMismatch,
				fmt.Sprintf("nonce (nonce) claim mismatch in the ID token; expected %q, found %q", req.Nonce, nonce))
		}
	}

	// Max age
	if req.MaxAge > 0 {
		authTime, ok := claims.Time("auth_time")
		if !ok {
			return claimError(core.ErrorCodeAuthTimeExceeded,
				"authentication time (auth_time) claim must be a number present in the ID token when max age is specified")
		}
		if now.Sub(authTime) > req.MaxAge+skew {
			return claimError(core.ErrorCodeAuthTimeExceeded,
				fmt.Sprintf("authentication time (auth_time) claim indicates that too much time has passed since the last end-user authentication; current time (%d) is after last auth at %d",
					now.Unix(), authTime.Add(req.MaxAge).Unix()))
		}
	}

	// Organization
	if req.OrganizationID != "" {
		orgID, ok := claims.String("org_id")
		if !ok || orgID == "" {
			return claimError(core.ErrorCodeOrganizationMismatch, "organization (org_id) claim must be a string present in the ID token")
		}
		if orgID != req.OrganizationID {
			return claimError(core.ErrorCodeOrganizationMismatch,
				fmt.Sprintf("organization (org_id) claim mismatch in the ID token; expected %q, found %q", req.OrganizationID, orgID))
		}
	}
	if req.OrganizationName != "" {
		orgName, ok := claims.String("org_name")
		if !ok || orgName == "" {
			return claimError(core.ErrorCodeOrganizationMismatch, "organization (org_name) claim must be a string present in the ID token")
		}
		if !strings.EqualFold(orgName, req.OrganizationName) {
			return claimError(core.ErrorCodeOrganizationMismatch,
				fmt.Sprintf("organization (org_name) claim mismatch in the ID token; expected %q, found %q", req.OrganizationName, orgName))
		}
	}

	return nil
}

func claimError(code, message string) error {
	return core.NewValidationError(code, message, nil)
}
