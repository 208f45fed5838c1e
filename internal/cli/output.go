package cli

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/auth0/go-idtoken"
	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/jwks"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(v)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// plain replaces json.Number values with int64 or float64 so YAML renders
// them as numbers rather than quoted strings.
func plain(v any) any {
	switch val := v.(type) {
	case idtoken.Claims:
		return plain(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

func printVerdict(w io.Writer, claims idtoken.Claims) {
	okColor.Fprint(w, "valid")
	if sub := claims.Subject(); sub != "" {
		dimColor.Fprintf(w, " sub=%s", sub)
	}
	fmt.Fprintln(w)
}

func printError(w io.Writer, err error) {
	code := core.Code(err)
	switch {
	case code == "":
		errColor.Fprint(w, "error")
	case core.Retryable(err):
		warnColor.Fprint(w, code)
	default:
		errColor.Fprint(w, code)
	}
	fmt.Fprintf(w, ": %v\n", err)
}

func describeKeySet(set *jwks.KeySet) keySetDescription {
	desc := keySetDescription{
		Authority: set.Authority(),
		ExpiresAt: set.ExpiresAt().UTC().Format(time.RFC3339),
		Keys:      make([]keyDescription, 0, set.Len()),
	}
	for _, key := range set.Keys() {
		desc.Keys = append(desc.Keys, keyDescription{
			ID:        key.ID,
			Algorithm: key.Algorithm,
			Type:      keyType(key.Public),
		})
	}
	return desc
}

func keyType(public any) string {
	switch public.(type) {
	case *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PublicKey:
		return "EC"
	case ed25519.PublicKey:
		return "OKP"
	default:
		return "unknown"
	}
}
