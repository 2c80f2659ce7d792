package cli

import (
	"fmt"
	"strings"

	"github.com/temirov/repoctx/internal/generation"
)

const (
	// defaultAPIKeyEnvironmentVariable holds the provider key when generate.api_key_env is unset.
	defaultAPIKeyEnvironmentVariable = "OPENROUTER_API"
	// fallbackAPIKeyEnvironmentVariable is consulted after the configured variable.
	fallbackAPIKeyEnvironmentVariable = "REPOCTX_API_KEY"
	missingAPIKeyFormat               = "%w: set %s or %s"
)

type apiKeyResolver struct {
	primaryEnv  string
	fallbackEnv string
	lookup      func(string) string
}

func newAPIKeyResolver(configuredEnv string, lookup func(string) string) apiKeyResolver {
	primary := strings.TrimSpace(configuredEnv)
	if primary == "" {
		primary = defaultAPIKeyEnvironmentVariable
	}
	return apiKeyResolver{
		primaryEnv:  primary,
		fallbackEnv: fallbackAPIKeyEnvironmentVariable,
		lookup:      lookup,
	}
}

// Resolve returns the first non-blank key, trimmed.
func (resolver apiKeyResolver) Resolve() (string, error) {
	if resolver.lookup != nil {
		for _, name := range []string{resolver.primaryEnv, resolver.fallbackEnv} {
			if value := strings.TrimSpace(resolver.lookup(name)); value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf(missingAPIKeyFormat, generation.ErrMissingAPIKey, resolver.primaryEnv, resolver.fallbackEnv)
}
