package idtoken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantError error
	}{
		{name: "empty / no header"},
		{name: "token in header", header: "Bearer i-am-token", wantToken: "i-am-token"},
		{name: "lower case scheme", header: "bearer i-am-token", wantToken: "i-am-token"},
		{name: "no bearer", header: "i-am-token", wantError: ErrInvalidAuthHeader},
		{name: "basic scheme", header: "Basic i-am-token", wantError: ErrInvalidAuthHeader},
		{name: "too many parts", header: "Bearer i am token", wantError: ErrInvalidAuthHeader},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			got, err := AuthHeaderTokenExtractor(r)
			if tc.wantError != nil {
				assert.ErrorIs(t, err, tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantToken, got)
		})
	}
}

func TestCookieTokenExtractor(t *testing.T) {
	ex := CookieTokenExtractor("id_token")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ex(r)
	require.NoError(t, err)
	assert.Empty(t, got, "no cookie is not an error")

	r.AddCookie(&http.Cookie{Name: "id_token", Value: "i-am-token"})
	got, err = ex(r)
	require.NoError(t, err)
	assert.Equal(t, "i-am-token", got)
}

func TestParameterTokenExtractor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?id_token=i-am-token", nil)

	got, err := ParameterTokenExtractor("id_token")(r)
	require.NoError(t, err)
	assert.Equal(t, "i-am-token", got)
}

func TestFormTokenExtractor(t *testing.T) {
	ex := FormTokenExtractor("id_token")

	t.Run("it reads the posted field", func(t *testing.T) {
		body := url.Values{"id_token": {"i-am-token"}}.Encode()
		r := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		got, err := ex(r)
		require.NoError(t, err)
		assert.Equal(t, "i-am-token", got)
	})

	t.Run("it ignores the query string on GET", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/callback?id_token=i-am-token", nil)

		got, err := ex(r)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMultiTokenExtractor(t *testing.T) {
	noToken := func(*http.Request) (string, error) { return "", nil }
	token := func(*http.Request) (string, error) { return "i-am-token", nil }
	failing := func(*http.Request) (string, error) { return "", errors.New("extraction failed") }

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	got, err := MultiTokenExtractor(noToken, token, failing)(r)
	require.NoError(t, err)
	assert.Equal(t, "i-am-token", got)

	_, err = MultiTokenExtractor(noToken, failing, token)(r)
	assert.EqualError(t, err, "extraction failed")

	got, err = MultiTokenExtractor()(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClaimsFromContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), Claims{"sub": "auth0|1"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "auth0|1", claims.Subject())
}
