package serde

import "encoding/json"

type jsonSerde[T any] struct{}

// JSON returns a Serde that uses encoding/json for both directions.
func JSON[T any]() Serde[T] {
	return jsonSerde[T]{}
}

func (s jsonSerde[T]) Serialize(_ string, value T) ([]byte, error) {
	return json.Marshal(value)
}

func (s jsonSerde[T]) Deserialize(_ string, data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	return result, err
}
