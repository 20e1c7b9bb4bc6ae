package serde

import "fmt"

type deserializerAdapter[T any] struct {
	typed Deserializer[T]
}

func (a deserializerAdapter[T]) Deserialize(topic string, data []byte) (any, error) {
	return a.typed.Deserialize(topic, data)
}

type serializerAdapter[T any] struct {
	typed Serializer[T]
}

func (a serializerAdapter[T]) Serialize(topic string, value any) ([]byte, error) {
	typed, ok := value.(T)
	if !ok {
		return nil, fmt.Errorf("serde: expected %T, got %T", *new(T), value)
	}
	return a.typed.Serialize(topic, typed)
}

type serdeAdapter[T any] struct {
	typed Serde[T]
}

func (a serdeAdapter[T]) Deserialize(topic string, data []byte) (any, error) {
	return a.typed.Deserialize(topic, data)
}

func (a serdeAdapter[T]) Serialize(topic string, value any) ([]byte, error) {
	typed, ok := value.(T)
	if !ok {
		return nil, fmt.Errorf("serde: expected %T, got %T", *new(T), value)
	}
	return a.typed.Serialize(topic, typed)
}

// ToUntypedDeserializer erases a typed Deserializer's type parameter.
func ToUntypedDeserializer[T any](d Deserializer[T]) UntypedDeserializer {
	return deserializerAdapter[T]{typed: d}
}

// ToUntypedSerializer erases a typed Serializer's type parameter.
func ToUntypedSerializer[T any](s Serializer[T]) UntypedSerializer {
	return serializerAdapter[T]{typed: s}
}

// ToUntyped erases a typed Serde's type parameter.
func ToUntyped[T any](s Serde[T]) UntypedSerde {
	return serdeAdapter[T]{typed: s}
}
