package narrative

import "errors"

// ErrQuotaExceeded indicates the generator's provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("narrative quota exceeded")

// ErrTimedOut is the terminal error after the bounded retry budget is spent.
var ErrTimedOut = errors.New("narrative generation timed out after retries")
