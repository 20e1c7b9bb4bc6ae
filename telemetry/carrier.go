package telemetry

import "github.com/hugolhafner/krimson/record"

// HeadersCarrier adapts a *[]record.Header to OpenTelemetry's
// propagation.TextMapCarrier so trace context can travel in Kafka headers
// across a produce/consume hop.
type HeadersCarrier struct {
	Headers *[]record.Header
}

func (c HeadersCarrier) Get(key string) string {
	v, ok := record.HeaderValue(*c.Headers, key)
	if !ok {
		return ""
	}
	return string(v)
}

func (c HeadersCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, record.Header{Key: key, Value: []byte(value)})
}

func (c HeadersCarrier) Keys() []string {
	keys := make([]string, len(*c.Headers))
	for i, h := range *c.Headers {
		keys[i] = h.Key
	}
	return keys
}
