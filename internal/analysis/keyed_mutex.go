package analysis

import "sync"

// keyedMutex provides one mutex per key, so analysis for different
// submissions can run concurrently while calls for the same submission are
// serialized. Entries are reference-counted and removed once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for the key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()

	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}

	l.refs++

	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()

		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}

		k.mu.Unlock()
	}
}
