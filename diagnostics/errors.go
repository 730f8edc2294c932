package diagnostics

import "errors"

// ErrUnknownFormat is returned for an output format other than json or yaml.
var ErrUnknownFormat = errors.New("diagnostics: unknown format")
