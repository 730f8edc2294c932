package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.Expand.
//   - A `${VAR}` whose variable is unset is an error wrapping ErrMissingEnv.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	return expandStrict(s, os.LookupEnv)
}

func expandStrict(s string, lookup func(string) (string, bool)) (string, error) {
	const dollarSentinel = "\x00RAILIA_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}

// SecretProvider resolves secret references.
//
// Implementations must be safe for concurrent use and must not log secret values.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves secretref:env:<NAME> from the environment.
type EnvProvider struct{}

// Name implements SecretProvider.
func (EnvProvider) Name() string { return "env" }

// Resolve implements SecretProvider.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// FileProvider resolves secretref:file:<path> by reading a file, such as a
// mounted secret volume. Relative paths are joined to Dir.
type FileProvider struct {
	Dir string
}

// Name implements SecretProvider.
func (FileProvider) Name() string { return "file" }

// Resolve implements SecretProvider. Surrounding whitespace is trimmed.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("config: read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Resolver expands environment references and resolves secret references.
type Resolver struct {
	providers map[string]SecretProvider
}

// NewResolver creates a resolver. With no providers it registers EnvProvider
// and FileProvider.
func NewResolver(providers ...SecretProvider) *Resolver {
	if len(providers) == 0 {
		providers = []SecretProvider{EnvProvider{}, FileProvider{}}
	}
	r := &Resolver{providers: make(map[string]SecretProvider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ResolveValue expands value and resolves it if it is a secret reference.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	name, ref, ok := ParseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}
	provider, found := r.providers[name]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return resolved, nil
}

// ParseSecretRef parses a reference of the form secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
