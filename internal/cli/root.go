// Package cli implements the idtoken command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/internal/config"
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitRejected    = 1
	ExitUsage       = 2
	ExitUnavailable = 3
)

// NewRootCommand builds the idtoken command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "idtoken",
		Short:         "Validate OpenID Connect ID tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./idtoken.yaml)")
	root.PersistentFlags().String("issuer", "", "expected iss claim")
	root.PersistentFlags().String("audience", "", "expected aud claim (the client ID)")
	root.PersistentFlags().String("authority", "", "authority whose key set is used, defaults to the issuer")
	root.PersistentFlags().Bool("discovery", false, "locate the key set through OpenID discovery")
	root.PersistentFlags().Duration("http-timeout", 0, "timeout for key set requests")
	root.PersistentFlags().String("output", "", "output format: json or yaml")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")
	root.PersistentFlags().String("otlp-endpoint", "", "export traces to this OTLP gRPC endpoint")
	root.PersistentFlags().Bool("otlp-insecure", false, "disable TLS for the OTLP exporter")

	load := func(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return nil, nil, usageError{err}
		}
		logger, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return nil, nil, usageError{err}
		}
		logger.WithField("config", cfg.String()).Debug("loaded config")
		return cfg, logger, nil
	}

	root.AddCommand(newValidateCommand(load), newKeysCommand(load))
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage), errors.Is(err, core.ErrConfigInvalid):
		return ExitUsage
	case core.Retryable(err):
		return ExitUnavailable
	case errors.Is(err, core.ErrTokenInvalid):
		return ExitRejected
	default:
		return ExitUsage
	}
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newLogger(cfg *config.Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger, nil
}
