package proxy

import "errors"

// ErrEmptyUpstream is the cause wrapped into an apierr.BadGateway when a
// rewriter is asked to rewrite a zero-length body (spec.md §4.C edge rule).
var ErrEmptyUpstream = errors.New("empty upstream body")

// ErrHandleUnknown is returned by Signer.Verify for a token with no
// matching entry in the handle table (unknown or evicted).
var ErrHandleUnknown = errors.New("handle unknown or expired")

// ErrHandleMalformed is returned by Signer.Verify for a token that does
// not parse or whose MAC does not match.
var ErrHandleMalformed = errors.New("handle malformed or signature mismatch")
