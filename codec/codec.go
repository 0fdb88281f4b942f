// Package codec (de)serializes values at the cache-store boundary. The engine
// encodes fetched values once per fetch and decodes once per serving caller.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
