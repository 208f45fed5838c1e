package grpc

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/auth0/go-idtoken"
	"github.com/auth0/go-idtoken/core"
)

// Interceptor validates ID tokens carried in gRPC metadata.
type Interceptor struct {
	validator           *idtoken.Validator
	requirements        idtoken.Requirements
	tokenExtractor      TokenExtractor
	errorHandler        ErrorHandler
	excludedMethods     map[string]bool
	credentialsOptional bool
	logger              logrus.FieldLogger
}

// New creates an interceptor that validates every call against req.
func New(v *idtoken.Validator, req idtoken.Requirements, opts ...Option) (*Interceptor, error) {
	if v == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "validator is required", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	i := &Interceptor{
		validator:       v,
		requirements:    req,
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		logger:          logger,
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid interceptor option", err)
		}
	}

	return i, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// validates the caller's token and stores its claims in the context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.WithField("method", info.FullMethod).Debug("skipping id token validation for excluded method")
			return handler(ctx, req)
		}

		validatedCtx, err := i.validateRequest(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(validatedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// validates the caller's token once, when the stream opens.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.WithField("method", info.FullMethod).Debug("skipping id token validation for excluded method")
			return handler(srv, ss)
		}

		validatedCtx, err := i.validateRequest(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: validatedCtx})
	}
}

func (i *Interceptor) validateRequest(ctx context.Context, method string) (context.Context, error) {
	log := i.logger.WithField("method", method)

	tokenString, err := i.tokenExtractor(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to extract id token from metadata")
		return ctx, i.errorHandler(err)
	}

	if tokenString == "" {
		if i.credentialsOptional {
			log.Debug("no credentials provided, continuing without claims")
			return ctx, nil
		}
		return ctx, i.errorHandler(idtoken.ErrTokenMissing)
	}

	claims, err := i.validator.Validate(ctx, tokenString, i.requirements)
	if err != nil {
		return ctx, i.errorHandler(err)
	}

	return idtoken.WithClaims(ctx, claims), nil
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the context carrying the validated claims.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
