package idtoken

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/jwks"
	"github.com/auth0/go-idtoken/validator"
)

const (
	testAudience = "client-a"
	testSecret   = "a-client-secret-long-enough-for-hs256"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testAuthority publishes an RSA key set and counts fetches of it.
type testAuthority struct {
	server  *httptest.Server
	fetches atomic.Int32
	delay   time.Duration

	mu     sync.Mutex
	set    jwk.Set
	keys   map[string]*rsa.PrivateKey
	status int
}

func newTestAuthority(t *testing.T, kids ...string) *testAuthority {
	t.Helper()

	a := &testAuthority{set: jwk.NewSet(), keys: map[string]*rsa.PrivateKey{}}
	for _, kid := range kids {
		a.addKey(t, kid)
	}

	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		a.fetches.Add(1)
		time.Sleep(a.delay)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.status != 0 {
			w.WriteHeader(a.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.set)
	}))
	t.Cleanup(a.server.Close)

	return a
}

func (a *testAuthority) addKey(t *testing.T, kid string) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	a.mu.Lock()
	defer a.mu.Unlock()
	require.NoError(t, a.set.AddKey(key))
	a.keys[kid] = privateKey
}

func (a *testAuthority) setStatus(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

func (a *testAuthority) issuer() string { return a.server.URL + "/" }

// sign signs claims with the key registered under kid, or with a fresh key
// the authority never published when kid is unknown.
func (a *testAuthority) sign(t *testing.T, kid string, claims map[string]any) string {
	t.Helper()

	a.mu.Lock()
	privateKey, ok := a.keys[kid]
	a.mu.Unlock()
	if !ok {
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	}

	headers := jws.NewHeaders()
	require.NoError(t, headers.Set(jws.KeyIDKey, kid))

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256, privateKey, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)
	return string(signed)
}

func signHS256(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func idTokenClaims(issuer string, now time.Time) map[string]any {
	return map[string]any{
		"iss": issuer,
		"sub": "auth0|123456",
		"aud": testAudience,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
}

// decoded mirrors how the decoder represents numbers.
func decoded(claims map[string]any) Claims {
	out := Claims{}
	for k, v := range claims {
		switch n := v.(type) {
		case int64:
			out[k] = json.Number(strconv.FormatInt(n, 10))
		case int:
			out[k] = json.Number(strconv.Itoa(n))
		case []string:
			list := make([]any, len(n))
			for i, s := range n {
				list[i] = s
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}

func mustRequirements(t *testing.T, issuer string, opts ...validator.Option) Requirements {
	t.Helper()
	req, err := validator.NewRequirements(issuer, testAudience, opts...)
	require.NoError(t, err)
	return req
}

func flipSignatureByte(t *testing.T, tokenString string, i int) string {
	t.Helper()

	parts := strings.Split(tokenString, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[i] ^= 0xff
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)
	return strings.Join(parts, ".")
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// editSignatureSegment rewrites the encoded signature segment, leaving the
// signing input untouched.
func editSignatureSegment(t *testing.T, tokenString string, edit func(string) string) string {
	t.Helper()

	i := strings.LastIndex(tokenString, ".")
	require.Positive(t, i)
	return tokenString[:i+1] + edit(tokenString[i+1:])
}

func TestValidator_RoundTrip(t *testing.T) {
	clock := newTestClock()
	v, err := New(WithClientSecret(testSecret, validator.SecretPlain), WithClock(clock))
	require.NoError(t, err)

	now := clock.Now()
	claims := map[string]any{
		"iss": "https://issuer/",
		"aud": "abc",
		"exp": now.Add(60 * time.Second).Unix(),
		"iat": now.Unix(),
	}
	req, err := validator.NewRequirements("https://issuer/", "abc")
	require.NoError(t, err)

	got, err := v.Validate(context.Background(), signHS256(t, testSecret, claims), req)
	require.NoError(t, err)

	if diff := cmp.Diff(decoded(claims), got); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator_RS256(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")

	v, err := New(WithClock(clock), WithHTTPClient(authority.server.Client(), false))
	require.NoError(t, err)

	claims := idTokenClaims(authority.issuer(), clock.Now())
	claims["nonce"] = uuid.NewString()
	req := mustRequirements(t, authority.issuer(),
		validator.WithAlgorithm(validator.RS256),
		validator.WithNonce(claims["nonce"].(string)),
	)

	got, err := v.Validate(context.Background(), authority.sign(t, "kid-1", claims), req)
	require.NoError(t, err)
	if diff := cmp.Diff(decoded(claims), got); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}

	_, err = v.Validate(context.Background(), authority.sign(t, "kid-1", claims), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), authority.fetches.Load(), "the key set is cached")
}

func TestValidator_AuthorityOverridesIssuer(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")

	v, err := New(
		WithClock(clock),
		WithAuthority(authority.server.URL),
		WithHTTPClient(authority.server.Client(), false),
	)
	require.NoError(t, err)

	const issuer = "https://login.example.com/"
	claims := idTokenClaims(issuer, clock.Now())

	_, err = v.Validate(context.Background(), authority.sign(t, "kid-1", claims), mustRequirements(t, issuer))
	require.NoError(t, err)
	assert.Equal(t, int32(1), authority.fetches.Load())
}

func TestValidator_InteropWithGolangJWT(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")

	v, err := New(
		WithClock(clock),
		WithHTTPClient(authority.server.Client(), false),
		WithClientSecret(base64.RawURLEncoding.EncodeToString([]byte(testSecret)), validator.SecretBase64URL),
	)
	require.NoError(t, err)
	req := mustRequirements(t, authority.issuer())

	mapClaims := jwt.MapClaims{
		"iss": authority.issuer(),
		"sub": "auth0|interop",
		"aud": []string{testAudience, "client-b"},
		"azp": testAudience,
		"exp": clock.Now().Add(time.Hour).Unix(),
		"iat": clock.Now().Unix(),
	}

	t.Run("RS256", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, mapClaims)
		tok.Header["kid"] = "kid-1"
		signed, err := tok.SignedString(authority.keys["kid-1"])
		require.NoError(t, err)

		claims, err := v.Validate(context.Background(), signed, req)
		require.NoError(t, err)
		assert.Equal(t, "auth0|interop", claims.Subject())
		assert.Equal(t, []string{testAudience, "client-b"}, claims.Audience())
	})

	t.Run("HS256 with a base64url secret", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), signed, req)
		require.NoError(t, err)
	})
}

func TestValidator_Rejections(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")
	issuer := authority.issuer()

	newValidator := func(t *testing.T) *Validator {
		v, err := New(
			WithClock(clock),
			WithClientSecret(testSecret, validator.SecretPlain),
			WithHTTPClient(authority.server.Client(), false),
		)
		require.NoError(t, err)
		return v
	}

	t.Run("flipping any signature byte of an HS256 token", func(t *testing.T) {
		v := newValidator(t)
		signed := signHS256(t, testSecret, idTokenClaims(issuer, clock.Now()))

		for i := range 32 {
			_, err := v.Validate(context.Background(), flipSignatureByte(t, signed, i), mustRequirements(t, issuer))
			assert.ErrorIs(t, err, core.ErrSignatureInvalid, "byte %d", i)
		}
	})

	t.Run("flipping any signature byte of an RS256 token", func(t *testing.T) {
		v := newValidator(t)
		signed := authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now()))

		for i := range 256 {
			_, err := v.Validate(context.Background(), flipSignatureByte(t, signed, i), mustRequirements(t, issuer))
			assert.ErrorIs(t, err, core.ErrSignatureInvalid, "byte %d", i)
		}
	})

	t.Run("changing any character of the encoded HS256 signature", func(t *testing.T) {
		v := newValidator(t)
		signed := signHS256(t, testSecret, idTokenClaims(issuer, clock.Now()))
		req := mustRequirements(t, issuer)

		sig := signed[strings.LastIndex(signed, ".")+1:]
		for pos := range len(sig) {
			for _, c := range base64URLAlphabet {
				if byte(c) == sig[pos] {
					continue
				}
				tampered := editSignatureSegment(t, signed, func(s string) string {
					return s[:pos] + string(c) + s[pos+1:]
				})

				_, err := v.Validate(context.Background(), tampered, req)
				require.Error(t, err, "position %d replaced by %q", pos, c)
				assert.ErrorIs(t, err, core.ErrTokenInvalid)
				assert.Contains(t, []string{core.ErrorCodeSignatureInvalid, core.ErrorCodeMalformedToken}, core.Code(err))
			}
		}
	})

	t.Run("changing the last character of the encoded RS256 signature", func(t *testing.T) {
		v := newValidator(t)
		signed := authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now()))
		last := signed[len(signed)-1]

		for _, c := range base64URLAlphabet {
			if byte(c) == last {
				continue
			}
			tampered := signed[:len(signed)-1] + string(c)

			_, err := v.Validate(context.Background(), tampered, mustRequirements(t, issuer))
			assert.Error(t, err, "last character replaced by %q", c)
		}
	})

	t.Run("line breaks inside the signature segment", func(t *testing.T) {
		v := newValidator(t)
		signed := signHS256(t, testSecret, idTokenClaims(issuer, clock.Now()))

		for _, brk := range []string{"\r\n", "\n", "\r"} {
			tampered := editSignatureSegment(t, signed, func(s string) string {
				return s[:4] + brk + s[4:]
			})

			_, err := v.Validate(context.Background(), tampered, mustRequirements(t, issuer))
			assert.ErrorIs(t, err, core.ErrMalformedToken, "%q", brk)
		}
	})

	t.Run("alg none is unsupported even when a key would resolve", func(t *testing.T) {
		before := authority.fetches.Load()
		v := newValidator(t)

		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","kid":"kid-1"}`))
		payload, err := json.Marshal(idTokenClaims(issuer, clock.Now()))
		require.NoError(t, err)
		unsigned := header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2ln"

		_, err = v.Validate(context.Background(), unsigned, mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrUnsupportedAlgorithm)
		assert.Equal(t, before, authority.fetches.Load(), "no key fetch for an unsupported algorithm")
	})

	t.Run("unexpected algorithm is rejected before any fetch", func(t *testing.T) {
		before := authority.fetches.Load()
		v := newValidator(t)
		signed := authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now()))

		_, err := v.Validate(context.Background(), signed, mustRequirements(t, issuer, validator.WithAlgorithm(validator.HS256)))
		assert.ErrorIs(t, err, core.ErrUnexpectedAlgorithm)
		assert.Equal(t, before, authority.fetches.Load())
	})

	t.Run("malformed token does no work", func(t *testing.T) {
		before := authority.fetches.Load()
		v := newValidator(t)

		_, err := v.Validate(context.Background(), "not-a-token", mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrMalformedToken)
		assert.Equal(t, before, authority.fetches.Load())
	})

	t.Run("HS256 without a client secret", func(t *testing.T) {
		v, err := New(WithClock(clock))
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), signHS256(t, testSecret, idTokenClaims(issuer, clock.Now())), mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrUnsupportedAlgorithm)
	})

	t.Run("expiry honours clock skew", func(t *testing.T) {
		v := newValidator(t)
		claims := idTokenClaims(issuer, clock.Now())
		claims["exp"] = clock.Now().Add(-time.Second).Unix()
		signed := signHS256(t, testSecret, claims)

		_, err := v.Validate(context.Background(), signed, mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrTokenExpired)

		_, err = v.Validate(context.Background(), signed, mustRequirements(t, issuer, validator.WithAllowedClockSkew(2*time.Second)))
		assert.NoError(t, err)
	})

	t.Run("multiple audiences require azp", func(t *testing.T) {
		v := newValidator(t)
		claims := idTokenClaims(issuer, clock.Now())
		claims["aud"] = []string{testAudience, "client-b"}

		_, err := v.Validate(context.Background(), signHS256(t, testSecret, claims), mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrInvalidAuthorizedParty)

		claims["azp"] = testAudience
		_, err = v.Validate(context.Background(), signHS256(t, testSecret, claims), mustRequirements(t, issuer))
		assert.NoError(t, err)
	})

	t.Run("a bad signature wins over bad claims", func(t *testing.T) {
		v := newValidator(t)
		claims := idTokenClaims("https://evil.example.com/", clock.Now())

		_, err := v.Validate(context.Background(), signHS256(t, "another-secret", claims), mustRequirements(t, issuer))
		assert.ErrorIs(t, err, core.ErrSignatureInvalid)
	})

	t.Run("invalid requirements are a configuration error", func(t *testing.T) {
		v := newValidator(t)

		_, err := v.Validate(context.Background(), signHS256(t, testSecret, idTokenClaims(issuer, clock.Now())), Requirements{Issuer: issuer})
		assert.ErrorIs(t, err, core.ErrConfigInvalid)
		assert.NotErrorIs(t, err, core.ErrTokenInvalid)
	})
}

func TestValidator_KeyRotation(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")
	issuer := authority.issuer()

	v, err := New(WithClock(clock), WithHTTPClient(authority.server.Client(), false))
	require.NoError(t, err)
	req := mustRequirements(t, issuer)

	_, err = v.Validate(context.Background(), authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now())), req)
	require.NoError(t, err)
	require.Equal(t, int32(1), authority.fetches.Load())

	unknown := authority.sign(t, "kid-2", idTokenClaims(issuer, clock.Now()))

	t.Run("a fresh key set is not refetched", func(t *testing.T) {
		_, err := v.Validate(context.Background(), unknown, req)
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
		assert.True(t, core.Retryable(err))
		assert.Equal(t, int32(1), authority.fetches.Load())
	})

	t.Run("an old key set is refetched exactly once", func(t *testing.T) {
		clock.advance(jwks.DefaultMinRefreshInterval + time.Second)

		_, err := v.Validate(context.Background(), unknown, req)
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
		assert.Equal(t, int32(2), authority.fetches.Load())

		_, err = v.Validate(context.Background(), unknown, req)
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
		assert.Equal(t, int32(2), authority.fetches.Load(), "the refetched set is fresh again")
	})

	t.Run("a rotated key is picked up", func(t *testing.T) {
		authority.addKey(t, "kid-3")
		rotated := authority.sign(t, "kid-3", idTokenClaims(issuer, clock.Now()))
		clock.advance(jwks.DefaultMinRefreshInterval + time.Second)

		_, err := v.Validate(context.Background(), rotated, req)
		require.NoError(t, err)
		assert.Equal(t, int32(3), authority.fetches.Load())
	})
}

func TestValidator_KeyRetrievalFailed(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")
	authority.setStatus(http.StatusServiceUnavailable)
	issuer := authority.issuer()

	v, err := New(WithClock(clock), WithHTTPClient(authority.server.Client(), false))
	require.NoError(t, err)

	signed := authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now()))

	_, err = v.Validate(context.Background(), signed, mustRequirements(t, issuer))
	assert.ErrorIs(t, err, core.ErrKeyRetrievalFailed)
	assert.True(t, core.Retryable(err))

	authority.setStatus(0)
	_, err = v.Validate(context.Background(), signed, mustRequirements(t, issuer))
	assert.NoError(t, err, "a failed fetch does not poison the cache")
}

func TestValidator_ConcurrentFirstUse(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")
	authority.delay = 100 * time.Millisecond
	issuer := authority.issuer()

	v, err := New(WithClock(clock), WithHTTPClient(authority.server.Client(), false))
	require.NoError(t, err)

	signed := authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now()))
	req := mustRequirements(t, issuer)

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = v.Validate(context.Background(), signed, req)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int32(1), authority.fetches.Load())
}

type recordingProvider struct {
	public    *rsa.PublicKey
	authority string
	kid       string
}

func (p *recordingProvider) LookupKey(_ context.Context, authority, kid string) (jwks.Key, error) {
	p.authority = authority
	p.kid = kid
	return jwks.Key{ID: kid, Algorithm: "RS256", Public: p.public}, nil
}

func TestValidator_WithKeyProvider(t *testing.T) {
	clock := newTestClock()
	authority := newTestAuthority(t, "kid-1")
	issuer := authority.issuer()

	provider := &recordingProvider{public: &authority.keys["kid-1"].PublicKey}
	v, err := New(WithClock(clock), WithKeyProvider(provider), WithAuthority("https://keys.example.com/"))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), authority.sign(t, "kid-1", idTokenClaims(issuer, clock.Now())), mustRequirements(t, issuer))
	require.NoError(t, err)
	assert.Equal(t, "https://keys.example.com/", provider.authority)
	assert.Equal(t, "kid-1", provider.kid)
	assert.Zero(t, authority.fetches.Load())
}

func TestNew_Options(t *testing.T) {
	testCases := []struct {
		name string
		opt  Option
	}{
		{"empty authority", WithAuthority("")},
		{"relative authority", WithAuthority("tenant.auth0.com")},
		{"empty secret", WithClientSecret("", validator.SecretPlain)},
		{"undecodable secret", WithClientSecret("***", validator.SecretBase64URL)},
		{"nil key provider", WithKeyProvider(nil)},
		{"nil http client", WithHTTPClient(nil, false)},
		{"nil clock", WithClock(nil)},
		{"nil logger", WithLogger(nil)},
		{"nil metrics", WithMetrics(nil)},
		{"nil tracer provider", WithTracerProvider(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opt)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}
