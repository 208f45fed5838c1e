/*
Package core holds the pieces shared by every stage of ID token validation:
the error taxonomy and the clock capability.

# Errors

Every rejection is a *ValidationError carrying a stable machine-readable
Code. Callers branch on the cause with errors.Is against the sentinel for
that code, or against ErrTokenInvalid to catch any rejection:

	claims, err := v.Validate(ctx, rawIDToken, req)
	switch {
	case errors.Is(err, core.ErrTokenExpired):
	    // ask the user to sign in again
	case core.Retryable(err):
	    // key set unavailable, retry the whole validation later
	case err != nil:
	    // forged, misdirected or malformed token
	}

The codes double as metric labels and structured log fields:

	logger.WithField("code", core.Code(err)).Debug("id token rejected")

# Clock

Time-based claim checks never read the wall clock directly. They ask a Clock,
which defaults to SystemClock and can be pinned in tests:

	clock := core.FixedClock(time.Unix(1700000000, 0))
*/
package core
