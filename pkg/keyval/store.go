// Package keyval provides the durable cold-store backend: an embedded
// key/value store partitioned into named namespaces with per-key atomic
// writes and prefix iteration within a namespace.
package keyval

// Store is the capability surface the storage engine needs from a backend.
// Get reports a missing key as ok == false with a nil error; only backend
// I/O failures produce errors.
type Store interface {
	// Put atomically writes value under key in the given namespace.
	Put(namespace string, key, value []byte) error
	// Get returns the value stored under key, or ok == false if absent.
	Get(namespace string, key []byte) (value []byte, ok bool, err error)
	// Iterate calls fn for every key/value pair in the namespace. Keys are
	// visited in ascending byte order with the namespace prefix stripped.
	// A non-nil error from fn stops iteration and is returned.
	Iterate(namespace string, fn func(key, value []byte) error) error
	Close() error
}

// namespaceKey builds the physical key for a namespaced entry. Namespaces
// are plain key prefixes, so distinct namespaces must not share a prefix up
// to the separator.
func namespaceKey(namespace string, key []byte) []byte {
	full := make([]byte, 0, len(namespace)+1+len(key))
	full = append(full, namespace...)
	full = append(full, ':')
	full = append(full, key...)
	return full
}
