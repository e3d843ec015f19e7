package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// credentialEnvs are consulted in order; the first non-empty one wins.
var credentialEnvs = []string{
	"OBJECT_STORAGE_CREDENTIALS",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"GOOGLE_APPLICATION_CREDENTIALS",
}

// credentialOptions turns a service-account key into client options. raw may
// be the key JSON itself or a path to it. Empty means application default
// credentials.
func credentialOptions(raw string) []option.ClientOption {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil
	case strings.HasPrefix(raw, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(raw)}
	}
}

// ClientOptionsFromEnv resolves credentials from the first set credentialEnvs entry.
func ClientOptionsFromEnv() []option.ClientOption {
	for _, name := range credentialEnvs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return credentialOptions(v)
		}
	}
	return nil
}
