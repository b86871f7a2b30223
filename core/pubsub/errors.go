package pubsub

import "errors"

// ErrRegistryClosed is returned by operations on a closed registry.
var ErrRegistryClosed = errors.New("pubsub registry is closed")
