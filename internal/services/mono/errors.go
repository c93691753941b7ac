package mono

import "errors"

var (
	ErrUpstream         = errors.New("aggregator request failed")
	ErrNotConfigured    = errors.New("MONO_SECRET_KEY not set in environment")
	ErrAccountNotLinked = errors.New("account not linked to this user")
)
