package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/pkg/models"
)

// Kind classifies why a mutation failed.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindConflict   Kind = "conflict"
	KindUnknown    Kind = "unknown"
)

// MutationError is returned by Executor when a write did not go through.
// The optimistic cache write, if any, has been rolled back by the time the
// caller sees it.
type MutationError struct {
	Kind Kind
	Op   Op
	Key  cache.Key
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Op, singular(e.Key), e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsKind reports whether err is a MutationError of kind k.
func IsKind(err error, k Kind) bool {
	var me *MutationError
	return errors.As(err, &me) && me.Kind == k
}

func classify(err error) Kind {
	var (
		localInvalid  *models.ValidationError
		remoteInvalid *client.ValidationError
		conflict      *client.ConflictError
		notFound      *client.NotFoundError
	)
	switch {
	case errors.As(err, &localInvalid) || errors.As(err, &remoteInvalid):
		return KindValidation
	case client.IsNetwork(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return KindNetwork
	case errors.As(err, &conflict) || errors.As(err, &notFound):
		// a 404 on write means the server no longer agrees with our view
		return KindConflict
	default:
		return KindUnknown
	}
}

// singular turns a collection key into a noun for messages.
func singular(key cache.Key) string {
	s := string(key)
	if len(s) > 1 && s[len(s)-1] == 's' {
		return s[:len(s)-1]
	}
	return s
}
