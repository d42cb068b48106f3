// Package command defines the respkv-cli application.
//
// With arguments, respkv-cli sends them as one command and prints the
// reply. Without arguments it starts an interactive session.
package command
