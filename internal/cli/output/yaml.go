package output

import (
	"io"

	"github.com/knadh/koanf/parsers/yaml"

	"github.com/basant256/respkv/internal/server/redisserver"
)

// YAMLFormatter writes the reply as a YAML document with a single
// "reply" key.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, v redisserver.Value) error {
	b, err := yaml.Parser().Marshal(map[string]any{"reply": data(v)})
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
