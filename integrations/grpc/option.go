package grpc

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// WithCredentialsOptional lets calls without a token through. Their
// context carries no claims.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger used for interceptor decisions.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips validation for the given full method names,
// for example "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
