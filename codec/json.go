package codec

import "encoding/json"

// JSON serializes values with encoding/json. The natural fit for upstream
// game-data responses, which arrive as JSON already.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
