package output

import (
	"encoding/json"
	"io"

	"github.com/basant256/respkv/internal/server/redisserver"
)

// JSONFormatter writes the reply as one JSON value.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, v redisserver.Value) error {
	return json.NewEncoder(w).Encode(data(v))
}
