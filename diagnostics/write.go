package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "yaml"}

// WriteJSON writes r as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("diagnostics: encode json: %w", err)
	}
	return nil
}

// WriteYAML writes r as YAML.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("diagnostics: encode yaml: %w", err)
	}
	return enc.Close()
}

// Write writes r in format, which is "json" or "yaml" (case-insensitive).
func (r Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		return r.WriteJSON(w)
	case "yaml", "yml":
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Handler serves a fresh report per request. The format query parameter
// selects yaml; the default is json. Health checks are bounded by timeout.
func Handler(src Sources, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		contentType := "application/json"
		switch format {
		case "", "json":
		case "yaml", "yml":
			contentType = "application/yaml"
		default:
			http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		report := Build(ctx, src)

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_ = report.Write(w, format)
	}
}
