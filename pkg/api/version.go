package api

// Build information. Overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)
