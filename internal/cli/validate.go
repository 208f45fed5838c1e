package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/auth0/go-idtoken"
	"github.com/auth0/go-idtoken/internal/config"
)

type loadFunc func(cmd *cobra.Command) (*config.Config, *logrus.Logger, error)

func newValidateCommand(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [TOKEN|-]",
		Short: "Validate an ID token and print its claims",
		Long: `Validate an ID token against the configured issuer and audience.

The token is read from the argument, or from stdin when the argument is "-"
or omitted. On success the claims are printed to stdout; on failure the error
code is printed to stderr and the exit code is non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return usageError{err}
			}

			tokenString, err := readToken(args, cmd.InOrStdin())
			if err != nil {
				return usageError{err}
			}

			req, err := cfg.Requirements()
			if err != nil {
				return usageError{err}
			}
			opts, err := cfg.ValidatorOptions()
			if err != nil {
				return usageError{err}
			}

			ctx := cmd.Context()
			tp, shutdown, err := newTracerProvider(ctx, cfg, logger)
			if err != nil {
				return usageError{err}
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.WithError(err).Warn("failed to flush traces")
				}
			}()
			opts = append(opts, idtoken.WithLogger(logger), idtoken.WithTracerProvider(tp))

			v, err := idtoken.New(opts...)
			if err != nil {
				return err
			}

			claims, err := v.Validate(ctx, tokenString, req)
			if err != nil {
				return err
			}

			printVerdict(cmd.ErrOrStderr(), claims)
			return writeOutput(cmd.OutOrStdout(), cfg.Output, claims)
		},
	}

	flags := cmd.Flags()
	flags.String("client-secret", "", "client secret for HS256 tokens")
	flags.String("secret-encoding", "", "client secret encoding: plain or base64url")
	flags.String("algorithm", "", "require this signing algorithm: HS256 or RS256")
	flags.Duration("clock-skew", 0, "allowed clock skew")
	flags.Duration("max-age", 0, "maximum time since auth_time")
	flags.String("nonce", "", "expected nonce claim")
	flags.String("organization", "", "expected organization ID (org_...) or name")

	return cmd
}

// readToken returns the token from args or, failing that, the first line
// of in. An interactive terminal on stdin is refused rather than read.
func readToken(args []string, in io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no token given: pass it as an argument or pipe it on stdin")
	}

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}

	tokenString := strings.TrimSpace(line)
	if tokenString == "" {
		return "", errors.New("no token given on stdin")
	}
	return tokenString, nil
}
