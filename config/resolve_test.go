package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${RAILIA_TEST_MISSING}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
	if !strings.Contains(err.Error(), "RAILIA_TEST_MISSING") {
		t.Fatalf("expected missing var name in error, got: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	t.Setenv("X", "y")

	out, err := ExpandEnvStrict("$$${X}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "$y" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "$y")
	}
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:TOKEN", "env", "TOKEN", true},
		{"secretref:file:keys/sink", "file", "keys/sink", true},
		{"secretref:vault:a:b", "vault", "a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"https://example.com", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, provider, ref, ok)
		}
	}
}

type stubProvider struct {
	name   string
	values map[string]string
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	return s.values[ref], nil
}

func TestResolverResolveValue(t *testing.T) {
	t.Setenv("RAILIA_TEST_TOKEN", "tok")
	r := NewResolver(EnvProvider{}, stubProvider{name: "stub", values: map[string]string{"a": "alpha"}})
	ctx := context.Background()

	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"plain", "plain", nil},
		{"secretref:env:RAILIA_TEST_TOKEN", "tok", nil},
		{"secretref:stub:a", "alpha", nil},
		{"secretref:stub:missing", "", ErrEmptySecret},
		{"secretref:vault:x", "", ErrUnknownProvider},
		{"secretref:env:RAILIA_TEST_UNSET", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		got, err := r.ResolveValue(ctx, tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ResolveValue(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolveValue(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "key"), []byte("  value \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FileProvider{Dir: dir}.Resolve(context.Background(), "key")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "value" {
		t.Fatalf("Resolve() = %q, want trimmed value", got)
	}
	if _, err := (FileProvider{Dir: dir}).Resolve(context.Background(), "absent"); err == nil {
		t.Fatal("Resolve() of a missing file should fail")
	}
}
