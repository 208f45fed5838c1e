package idtoken

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/token"
)

const (
	tracerName = "github.com/auth0/go-idtoken"
	spanName   = "idtoken.Validate"
)

// Span attribute keys
const (
	attrAlgorithm = attribute.Key("idtoken.alg")
	attrKeyID     = attribute.Key("idtoken.kid")
	attrCode      = attribute.Key("idtoken.code")
)

func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(tracerName)
}

func recordSpan(span trace.Span, tok *token.CompactToken, err error) {
	if tok != nil {
		span.SetAttributes(attrAlgorithm.String(tok.Algorithm()))
		if kid := tok.KeyID(); kid != "" {
			span.SetAttributes(attrKeyID.String(kid))
		}
	}

	if err != nil {
		code := core.Code(err)
		span.SetAttributes(attrCode.String(code))
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		return
	}

	span.SetStatus(codes.Ok, "")
}
