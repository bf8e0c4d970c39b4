package retrieval

import (
	"context"
	"errors"
	"fmt"
)

const (
	pathVector   = "vector"
	pathFallback = "fallback"

	reasonOK              = "ok"
	reasonNoCredential    = "no_credential"
	reasonListFailed      = "list_failed"
	reasonIndexMissing    = "index_missing"
	reasonEmbeddingFailed = "embedding_failed"
	reasonQueryFailed     = "query_failed"
	reasonPanic           = "panic"
	reasonNoResult        = "no_result"
)

type query struct {
	text string
	topK int
}

// step is one stage of the vector path. A step that returns hits ends the
// chain successfully; one that returns nil hits and a nil error hands over
// to the next step.
type step func(ctx context.Context, q query) ([]Hit, error)

// stepError stops the chain. reason labels the fallback decision.
type stepError struct {
	reason string
	err    error
}

func (e *stepError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.reason, e.err)
	}
	return e.reason
}

func (e *stepError) Unwrap() error {
	return e.err
}

func stop(reason string, err error) error {
	return &stepError{reason: reason, err: err}
}

// runChain runs steps in order and returns the hits of the first step that
// produces any, with reason "ok". Any error or panic ends the chain and is
// reported as a reason for falling back; callers never see the error.
func runChain(ctx context.Context, text string, topK int, steps []step) (hits []Hit, reason string) {
	q := query{text: text, topK: topK}

	defer func() {
		if r := recover(); r != nil {
			hits, reason = nil, reasonPanic
		}
	}()

	for _, s := range steps {
		out, err := s(ctx, q)
		if err != nil {
			var se *stepError
			if errors.As(err, &se) {
				return nil, se.reason
			}
			return nil, reasonQueryFailed
		}
		if out != nil {
			return out, reasonOK
		}
	}
	return nil, reasonNoResult
}
