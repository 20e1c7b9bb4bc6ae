package kafka

import (
	"errors"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// IsFatal classifies a broker/client error per spec §7's transient/fatal
// taxonomy, using kgo's own error types rather than string matching: a
// *kerr.Error is a protocol-level response from the broker and carries its
// own Retriable verdict (e.g. NOT_LEADER_OR_FOLLOWER is retriable,
// TOPIC_AUTHORIZATION_FAILED is not); a closed client can never make
// progress on whatever was in flight and is always fatal. Anything else —
// context deadlines, network errors, disconnects the client already retries
// internally — is treated as transient.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kgo.ErrClientClosed) {
		return true
	}
	var kerrErr *kerr.Error
	if errors.As(err, &kerrErr) {
		return !kerrErr.Retriable
	}
	return false
}
