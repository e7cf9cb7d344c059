package port

import "context"

type Locker interface {
	// Lock blocks until key is held or ctx is done; the returned func releases it
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
