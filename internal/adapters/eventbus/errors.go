package eventbus

import "errors"

var (
	ErrNilSource     = errors.New("eventbus: nil score source")
	ErrNilPublisher  = errors.New("eventbus: nil publisher")
	ErrNilSubscriber = errors.New("eventbus: nil subscriber")
)
