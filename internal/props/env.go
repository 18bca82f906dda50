package props

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix marks process variables that are forwarded to the bundle
const EnvPrefix = "REMOTION_"

// LoadEnv builds the environment passed to the bundle: every process
// variable starting with EnvPrefix, overlaid by the variables of envFile
// when it is set. File values win.
func LoadEnv(envFile string) (map[string]string, error) {
	env := FromProcess(os.Environ())
	if envFile == "" {
		return env, nil
	}

	fileEnv, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}
	for k, v := range fileEnv {
		env[k] = v
	}
	return env, nil
}

// FromProcess picks the EnvPrefix variables out of KEY=VALUE pairs
func FromProcess(environ []string) map[string]string {
	env := make(map[string]string)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		env[k] = v
	}
	return env
}

// ParsePairs parses repeated --env KEY=VALUE flags
func ParsePairs(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid env pair %q, want KEY=VALUE", kv)
		}
		env[strings.TrimSpace(k)] = v
	}
	return env, nil
}
