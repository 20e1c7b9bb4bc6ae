package consumer

import "errors"

// ErrAlreadyStopped is returned by a second call to Adapter.Stop.
var ErrAlreadyStopped = errors.New("consumer: already stopped")

// ErrAlreadyStarted is returned by a second call to Adapter.Start.
var ErrAlreadyStarted = errors.New("consumer: already started")
