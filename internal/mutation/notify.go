package mutation

import (
	"fmt"

	"github.com/trademate-dev/trademate/internal/cache"
)

// Notification is the single user-visible signal raised for a failed
// mutation.
type Notification struct {
	Key     cache.Key
	Op      Op
	Kind    Kind
	Message string
	Err     error
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

func newNotification(key cache.Key, op Op, kind Kind, err error) Notification {
	var msg string
	switch kind {
	case KindValidation:
		msg = fmt.Sprintf("Could not %s %s: %v", op, singular(key), err)
	case KindNetwork:
		msg = fmt.Sprintf("Could not %s %s: the server could not be reached. Your change was undone.", op, singular(key))
	case KindConflict:
		msg = fmt.Sprintf("Could not %s %s: it was changed or removed on the server. Your change was undone.", op, singular(key))
	default:
		msg = fmt.Sprintf("Could not %s %s: %v. Your change was undone.", op, singular(key), err)
	}
	return Notification{Key: key, Op: op, Kind: kind, Message: msg, Err: err}
}
