package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8000"`

	// MaxArtifactBytes caps the size of a single artifact upload.
	MaxArtifactBytes int64 `env:"HTTP_MAX_ARTIFACT_BYTES" envDefault:"1073741824"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	// 1 GiB default, never allow a non-positive cap
	if h.MaxArtifactBytes <= 0 {
		h.MaxArtifactBytes = 1 << 30
	}
}
