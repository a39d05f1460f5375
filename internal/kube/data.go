package kube

import (
	"fmt"
	"strings"

	"github.com/subosito/gotenv"
)

// ConfigDataFromSources builds ConfigMap data from an optional env file and
// KEY=VALUE literals. Literals override file entries on the same key.
func ConfigDataFromSources(envFile string, literals []string) (map[string]string, error) {
	data := map[string]string{}

	if envFile != "" {
		entries, err := readEnvFile(envFile)
		if err != nil {
			return nil, err
		}
		for k, v := range entries {
			data[k] = v
		}
	}

	for _, item := range literals {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("literal %q must be in KEY=VALUE form", item)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return data, nil
}

// SecretDataFromSources builds Secret data from the same inputs. Values are
// raw bytes; the API server handles base64 encoding on the wire.
func SecretDataFromSources(envFile string, literals []string) (map[string][]byte, error) {
	plain, err := ConfigDataFromSources(envFile, literals)
	if err != nil {
		return nil, err
	}
	data := make(map[string][]byte, len(plain))
	for k, v := range plain {
		data[k] = []byte(v)
	}
	return data, nil
}

// readEnvFile parses a dotenv file strictly: malformed lines are errors,
// comments and blank lines are skipped.
func readEnvFile(path string) (map[string]string, error) {
	env, err := gotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("could not read env file: %w", err)
	}
	return env, nil
}
