// Package kv provides the key-value persistence layer used by the
// session and queue stores. Records are whole-document JSON blobs;
// callers read-modify-write full records.
package kv

// Store is the persistence contract. Get returns (nil, nil) when the
// key is absent so callers can branch without error handling.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	ListKeysWithPrefix(prefix string) ([]string, error)
	Close() error
}

// Notifier receives a fire-and-forget signal after every successful
// write so an external sync layer can mirror state. Implementations
// must not block; the store invokes it on a separate goroutine and
// ignores panics.
type Notifier func()

func notify(n Notifier) {
	if n == nil {
		return
	}
	go func() {
		defer func() { _ = recover() }()
		n()
	}()
}
