package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/basant256/respkv/internal/server/redisserver"
)

// Format is an output format name.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatRaw, FormatJSON, FormatYAML}

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, v redisserver.Value) error
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// NewFormatter creates a formatter. Unknown formats fall back to text.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatRaw:
		return &RawFormatter{}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

func (f *TextFormatter) Format(w io.Writer, v redisserver.Value) error {
	_, err := fmt.Fprintln(w, v.Format())
	return err
}

// RawFormatter prints bare values.
type RawFormatter struct{}

func (f *RawFormatter) Format(w io.Writer, v redisserver.Value) error {
	switch v.Kind {
	case '*':
		for _, item := range v.Array {
			if err := f.Format(w, item); err != nil {
				return err
			}
		}
		return nil
	case ':':
		_, err := fmt.Fprintln(w, strconv.FormatInt(v.Int, 10))
		return err
	case '$':
		if _, err := w.Write(v.Bulk); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	default:
		_, err := fmt.Fprintln(w, v.Str)
		return err
	}
}

// data converts a reply to plain Go values for document encoders. Error
// replies become {"error": message}.
func data(v redisserver.Value) any {
	switch v.Kind {
	case '+':
		return v.Str
	case '-':
		return map[string]any{"error": v.Str}
	case ':':
		return v.Int
	case '$':
		if v.Null {
			return nil
		}
		return string(v.Bulk)
	case '*':
		if v.Null {
			return nil
		}
		items := make([]any, len(v.Array))
		for i, item := range v.Array {
			items[i] = data(item)
		}
		return items
	default:
		return nil
	}
}
