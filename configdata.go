// Package editorcord embeds files shared by the commands under cmd/.
package editorcord

import _ "embed"

// DefaultConfigTOML is config.default.toml, generated by cmd/genconfig.
// The daemon writes it to the data directory on first run.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
