package delivery

import "errors"

var (
	// ErrNoSender is returned by Router when no sender serves the channel.
	ErrNoSender = errors.New("no sender for channel")
	// ErrProviderRejected wraps non-2xx provider responses.
	ErrProviderRejected = errors.New("delivery provider rejected message")
)
