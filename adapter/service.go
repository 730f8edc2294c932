package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/resilience"
)

const maxErrorBody = 512

// Service is a named HTTP dependency guarded by an Executor.
type Service struct {
	name   string
	kind   fault.Kind
	exec   *resilience.Executor
	client *resty.Client
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClient sets the resty client. Default: a new client with no retries
// of its own; retrying belongs to the executor.
func WithClient(c *resty.Client) ServiceOption {
	return func(s *Service) { s.client = c }
}

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) ServiceOption {
	return func(s *Service) {
		if s.client == nil {
			s.client = newClient()
		}
		s.client.SetHeader(key, value)
	}
}

// WithBearerToken authenticates every request with token.
func WithBearerToken(token string) ServiceOption {
	return func(s *Service) {
		if s.client == nil {
			s.client = newClient()
		}
		s.client.SetAuthToken(token)
	}
}

func newClient() *resty.Client {
	return resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "railia-adapter/1.0")
}

// NewService creates a Service. kind classifies exhausted calls.
func NewService(name string, kind fault.Kind, exec *resilience.Executor, opts ...ServiceOption) (*Service, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if exec == nil {
		return nil, ErrNilExecutor
	}
	s := &Service{name: name, kind: kind, exec: exec}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = newClient()
	}
	return s, nil
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Kind returns the fault kind of the service.
func (s *Service) Kind() fault.Kind { return s.kind }

// Executor returns the executor guarding the service.
func (s *Service) Executor() *resilience.Executor { return s.exec }

// Call performs one guarded request and decodes the JSON response into T.
// When fallback is non-nil it is returned once every attempt has failed.
func Call[T any](ctx context.Context, s *Service, verb, path string, body any, fallback *T) (resilience.Result[T], error) {
	return resilience.Execute(ctx, s.exec, resilience.Request[T]{
		Verb:      verb,
		Path:      path,
		Body:      body,
		Kind:      s.kind,
		Component: s.name,
		Fallback:  fallback,
		Operation: func(ctx context.Context) (T, error) {
			var v T
			raw, err := s.do(ctx, verb, path, body)
			if err != nil {
				return v, err
			}
			if len(raw) == 0 {
				return v, nil
			}
			if err := json.Unmarshal(raw, &v); err != nil {
				return v, fmt.Errorf("%w: %s: %w", ErrDecode, s.name, err)
			}
			return v, nil
		},
	})
}

// Get performs a guarded GET. Successful responses are cached when the
// executor has caching enabled.
func Get[T any](ctx context.Context, s *Service, path string, fallback *T) (resilience.Result[T], error) {
	return Call(ctx, s, http.MethodGet, path, nil, fallback)
}

// Post performs a guarded POST with a JSON body. POST responses are never cached.
func Post[T any](ctx context.Context, s *Service, path string, body any, fallback *T) (resilience.Result[T], error) {
	return Call(ctx, s, http.MethodPost, path, body, fallback)
}

// Invalidate drops the cached response of a GET.
func (s *Service) Invalidate(ctx context.Context, path string) error {
	return s.exec.InvalidateCache(ctx, http.MethodGet, path, nil)
}

func (s *Service) do(ctx context.Context, verb, path string, body any) ([]byte, error) {
	if verb == "" {
		verb = http.MethodGet
	}
	address := s.exec.Address(path)

	req := s.client.R().SetContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(verb, address)
	if err != nil {
		return nil, fmt.Errorf("adapter: %s %s %s: %w", s.name, verb, address, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		b := resp.Body()
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return nil, &StatusError{
			Service: s.name,
			Verb:    verb,
			Address: address,
			Code:    resp.StatusCode(),
			Body:    string(b),
		}
	}
	return resp.Body(), nil
}

// Ping issues one unguarded GET to path. A transport error or a 5xx answer
// is returned as an error.
func (s *Service) Ping(ctx context.Context, path string) error {
	code, _, err := s.probe(ctx, path)
	if err != nil {
		return fmt.Errorf("adapter: %s: ping: %w", s.name, err)
	}
	if code >= http.StatusInternalServerError {
		return &StatusError{Service: s.name, Verb: http.MethodGet, Address: s.exec.Address(path), Code: code}
	}
	return nil
}

// probe issues one unguarded request to path and reports the status code.
func (s *Service) probe(ctx context.Context, path string) (int, time.Duration, error) {
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Get(s.exec.Address(path))
	if err != nil {
		return 0, time.Since(start), err
	}
	return resp.StatusCode(), time.Since(start), nil
}
