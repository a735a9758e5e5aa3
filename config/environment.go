package config

import "strings"

// Environment selects the vendor backend
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// ParseEnvironment is case-insensitive, anything unknown is production
func ParseEnvironment(value string) Environment {
	if strings.EqualFold(strings.TrimSpace(value), string(Sandbox)) {
		return Sandbox
	}
	return Production
}

func (e Environment) String() string {
	return string(e)
}
