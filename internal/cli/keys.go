package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/auth0/go-idtoken/jwks"
)

func newKeysCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [AUTHORITY]",
		Short: "List the signing keys an authority publishes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}

			authority := cfg.KeyAuthority()
			if len(args) == 1 {
				authority = args[0]
			}
			if authority == "" {
				return usageError{errors.New("no authority given: pass it as an argument or set issuer")}
			}

			cache, err := jwks.New(
				jwks.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.Discovery),
				jwks.WithLogger(logger),
			)
			if err != nil {
				return usageError{err}
			}

			set, err := cache.KeySet(cmd.Context(), authority)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), cfg.Output, describeKeySet(set))
		},
	}
}

type keyDescription struct {
	ID        string `json:"kid" yaml:"kid"`
	Algorithm string `json:"alg,omitempty" yaml:"alg,omitempty"`
	Type      string `json:"kty" yaml:"kty"`
}

type keySetDescription struct {
	Authority string           `json:"authority" yaml:"authority"`
	ExpiresAt string           `json:"expires_at" yaml:"expires_at"`
	Keys      []keyDescription `json:"keys" yaml:"keys"`
}
