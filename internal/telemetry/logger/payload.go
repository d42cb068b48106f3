package logger

import (
	"log/slog"
	"strconv"
)

// MaxPayloadLen is the number of bytes of a key or value kept in a log
// entry.
const MaxPayloadLen = 64

// Payload wraps client-supplied bytes for logging. The bytes are rendered
// quoted and truncated to MaxPayloadLen.
type Payload []byte

// LogValue implements slog.LogValuer.
func (p Payload) LogValue() slog.Value {
	return slog.StringValue(quotePayload(p))
}

func quotePayload(b []byte) string {
	if len(b) <= MaxPayloadLen {
		return strconv.Quote(string(b))
	}
	return strconv.Quote(string(b[:MaxPayloadLen])) + "...(" + strconv.Itoa(len(b)) + " bytes)"
}

// renderPayload catches raw byte slices that were logged without Payload.
func renderPayload(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if b, ok := a.Value.Any().([]byte); ok {
		return slog.String(a.Key, quotePayload(b))
	}
	return a
}
