package demo_configs

import (
	"embed"
)

// FS provides embedded default machine configs and bot scripts for external usage.
//
//go:embed *.yaml *.js
var FS embed.FS
