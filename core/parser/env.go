package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Environment variable pattern: {{ env.VARIABLE_NAME }}
var envVarPattern = regexp.MustCompile(`\{\{\s*env\.(\w+)\s*\}\}`)

// substituteEnvVars replaces {{ env.VARIABLE_NAME }} placeholders with
// environment variable values. A referenced variable that is unset is an
// error; seed files are resolved once at startup and a silently empty DSN
// is worse than failing fast.
func substituteEnvVars(value string) (string, error) {
	result := value
	matches := envVarPattern.FindAllStringSubmatch(value, -1)
	seen := make(map[string]bool)

	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		envVarName := match[1]
		placeholder := match[0]

		if seen[placeholder] {
			continue
		}
		seen[placeholder] = true

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			return "", fmt.Errorf("environment variable '%s' not found (required at server startup)", envVarName)
		}

		result = strings.ReplaceAll(result, placeholder, envValue)
	}

	return result, nil
}
