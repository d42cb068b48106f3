// Package output renders server replies for respkv-cli.
//
// Formats:
//
//   - text: redis-cli style, e.g. `(integer) 1`, `"value"`, `(nil)`
//   - raw: values only, one per line, bulk strings unquoted
//   - json, yaml: the reply as a document, for scripting
package output
