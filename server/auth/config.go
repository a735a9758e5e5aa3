package auth

import "time"

// Config is used to configure bearer token authorization
type Config struct {
	// Secret signs and verifies tokens, it may be resolved from a secret store beforehand
	Secret   string        `yaml:"secret" json:"secret"`
	Issuer   string        `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Audience string        `yaml:"audience,omitempty" json:"audience,omitempty"`
	Leeway   time.Duration `yaml:"leeway,omitempty" json:"leeway,omitempty"`
	// ExcludeURI skips authorization for paths with this prefix
	ExcludeURI string `yaml:"excludeURI,omitempty" json:"excludeURI,omitempty"`
	// Methods lists protected JSON-RPC methods, empty protects every method
	Methods []string `yaml:"methods,omitempty" json:"methods,omitempty"`
	// ProtectStreams also requires a token to open SSE event streams
	ProtectStreams bool `yaml:"protectStreams,omitempty" json:"protectStreams,omitempty"`
}

func (c *Config) protects(method string) bool {
	if len(c.Methods) == 0 {
		return true
	}
	for _, candidate := range c.Methods {
		if candidate == method {
			return true
		}
	}
	return false
}
