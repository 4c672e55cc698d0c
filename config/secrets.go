package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	GeoapifyAPIKey = "GeoapifyAPIKey"
	JWTSecret      = "JWTSecret"
)

// SecretSource looks up credentials by name. A missing secret is not an
// error; callers decide what an empty credential means.
type SecretSource interface {
	Secret(key string) (string, bool)
}

// viperSecrets reads `secrets.<key>` from the loaded config, which viper
// also resolves from EXPLORE_SECRETS_<KEY> in the environment.
type viperSecrets struct {
	v *viper.Viper
}

func (s *viperSecrets) Secret(key string) (string, bool) {
	k := "secrets." + strings.ToLower(key)
	if !s.v.IsSet(k) {
		return "", false
	}
	val := s.v.GetString(k)
	return val, val != ""
}

// StaticSecrets is a fixed map, mostly for tests.
type StaticSecrets map[string]string

func (s StaticSecrets) Secret(key string) (string, bool) {
	v, ok := s[key]
	return v, ok && v != ""
}

// SecretSource returns the secret lookup for this config. Configs built by
// hand (tests) fall back to the plain Secrets map.
func (c Config) SecretSource() SecretSource {
	if c.secrets != nil {
		return c.secrets
	}
	return StaticSecrets(c.Secrets)
}

// SecretOrEmpty returns the secret or "" when it is not configured.
func SecretOrEmpty(src SecretSource, key string) string {
	v, _ := src.Secret(key)
	return v
}
