package qingque

// Key identifies one logical resource: a resource class (e.g. "profile",
// "chronicle", "asset") plus the class-scoped resource ID (e.g. a game UID).
// Immutable once constructed; the engine derives all storage keys from it.
type Key struct {
	Class string
	ID    string
}

func (k Key) String() string { return k.Class + ":" + k.ID }

// entryKey returns the storage key for the cached source entry.
func (e *engine[V]) entryKey(k Key) string {
	return "res:" + e.ns + ":" + k.Class + ":" + k.ID
}
