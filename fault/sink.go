package fault

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Sink receives errors forwarded upstream.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Report must honor cancellation/deadlines.
// - Errors: returned errors are logged by the Handler and never propagated.
type Sink interface {
	Report(ctx context.Context, e *Error) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e *Error) error

// Report implements Sink.
func (f SinkFunc) Report(ctx context.Context, e *Error) error { return f(ctx, e) }

// HTTPSinkConfig configures an HTTPSink.
type HTTPSinkConfig struct {
	// Endpoint receives a JSON POST per report. Required.
	Endpoint string

	// SigningKey signs an HS256 bearer token per request.
	// If empty, no Authorization header is sent.
	SigningKey []byte

	// Issuer is the iss claim of the bearer token.
	// Default: "railia"
	Issuer string

	// TokenTTL bounds the lifetime of each bearer token.
	// Default: 1 minute
	TokenTTL time.Duration

	// Timeout bounds each request.
	// Default: 5 seconds
	Timeout time.Duration
}

// HTTPSink posts reports to a telemetry collector.
type HTTPSink struct {
	config HTTPSinkConfig
	client *resty.Client
	now    func() time.Time
}

// NewHTTPSink creates an HTTP sink. client may be nil.
func NewHTTPSink(config HTTPSinkConfig, client *resty.Client) (*HTTPSink, error) {
	if config.Endpoint == "" {
		return nil, ErrSinkNotConfigured
	}
	if config.Issuer == "" {
		config.Issuer = "railia"
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "railia-fault-sink/1.0")

	return &HTTPSink{config: config, client: client, now: time.Now}, nil
}

// Report implements Sink.
func (s *HTTPSink) Report(ctx context.Context, e *Error) error {
	req := s.client.R().SetContext(ctx).SetBody(e)

	if len(s.config.SigningKey) > 0 {
		token, err := s.token(e)
		if err != nil {
			return fmt.Errorf("fault: sign report: %w", err)
		}
		req.SetAuthToken(token)
	}

	resp, err := req.Post(s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("fault: post report: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrSinkRejected, resp.StatusCode())
	}
	return nil
}

func (s *HTTPSink) token(e *Error) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   e.Component,
		ID:        e.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
}

var _ Sink = (*HTTPSink)(nil)
