package serde

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct{}

// Protobuf returns a Serde for a concrete proto.Message type, using
// google.golang.org/protobuf for both directions.
func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

func (s protobufSerde[T]) Serialize(_ string, value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (s protobufSerde[T]) Deserialize(_ string, data []byte) (T, error) {
	result := newMessage[T]()
	if err := proto.Unmarshal(data, result); err != nil {
		var zero T
		return zero, fmt.Errorf("protobuf deserialize: %w", err)
	}
	return result, nil
}

// newMessage allocates a fresh instance of T's underlying message type,
// since a zero-value proto.Message interface has no message to unmarshal
// into.
func newMessage[T proto.Message]() T {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		panic("serde: Protobuf[T] requires a non-interface pointer message type")
	}
	return reflect.New(t.Elem()).Interface().(T)
}
