package idtoken

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/auth0/go-idtoken/core"
	"github.com/auth0/go-idtoken/token"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// logOutcome logs the result of one validation. Token contents other than
// the header are never logged.
func (v *Validator) logOutcome(tok *token.CompactToken, claims Claims, err error) {
	fields := logrus.Fields{}
	if tok != nil {
		fields["alg"] = tok.Algorithm()
		if kid := tok.KeyID(); kid != "" {
			fields["kid"] = kid
		}
	}

	if err != nil {
		fields["code"] = core.Code(err)
		entry := v.logger.WithFields(fields).WithError(err)
		if core.Retryable(err) {
			entry.Warn("id token could not be verified")
			return
		}
		entry.Debug("id token rejected")
		return
	}

	fields["sub"] = claims.Subject()
	v.logger.WithFields(fields).Debug("id token validated")
}
