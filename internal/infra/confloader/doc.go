// Package confloader loads respkv configuration.
//
// Sources are layered with koanf. Later sources override earlier ones:
//
//  1. Defaults (the target struct as passed to Load)
//  2. YAML configuration file
//  3. Environment variables (RESPKV_ prefix)
//  4. Explicit overrides, usually command-line flags (LoadMap)
//
// Watcher reports changes to the configuration file so that reloadable
// settings can be applied without a restart.
package confloader
