package relay

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// BadTokenBody is returned to managed callers whose token does not match
const BadTokenBody = "What are you doing?"

// DefaultCacheMaxAge is the advisory max-age sent by the managed variant, in seconds
const DefaultCacheMaxAge = 600

// Variant selects the deployment shape a Relay answers for
type Variant int

const (
	// Standalone is the local server: no token, CORS header on success
	Standalone Variant = iota
	// Managed is the function handler: token required, caching headers everywhere
	Managed
)

func (v Variant) String() string {
	switch v {
	case Managed:
		return "managed"
	default:
		return "standalone"
	}
}

// FaultPolicy decides what a network-level fetch fault turns into
type FaultPolicy string

const (
	// FaultPropagate returns the fault to the caller of Handle
	FaultPropagate FaultPolicy = "propagate"
	// FaultEmpty degrades the fault to a 200 with an empty body
	FaultEmpty FaultPolicy = "empty"
	// FaultBadGateway answers 502 with an empty body
	FaultBadGateway FaultPolicy = "bad-gateway"
)

// ParseFaultPolicy converts a configuration value into a FaultPolicy
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch p := FaultPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FaultPropagate, FaultEmpty, FaultBadGateway:
		return p, nil
	case "":
		return FaultPropagate, nil
	default:
		return "", fmt.Errorf("invalid fault policy %q: must be one of propagate, empty, bad-gateway", s)
	}
}

// Response is the outbound answer of a relay call
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Option configures a Relay
type Option func(*Relay)

// WithVariant sets the deployment shape
func WithVariant(v Variant) Option {
	return func(r *Relay) {
		r.variant = v
	}
}

// WithToken sets the secret managed callers must present
func WithToken(token string) Option {
	return func(r *Relay) {
		r.token = token
	}
}

// WithCacheMaxAge sets the advisory Cache-Control max-age in seconds
func WithCacheMaxAge(seconds int) Option {
	return func(r *Relay) {
		r.cacheMaxAge = seconds
	}
}

// WithFaultPolicy sets how fetch faults are reported
func WithFaultPolicy(p FaultPolicy) Option {
	return func(r *Relay) {
		r.faultPolicy = p
	}
}

// WithLogger sets the log entry used for relay events
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// Relay validates inbound parameters, fetches the target and maps the result.
// It holds only immutable configuration and is safe for concurrent use.
type Relay struct {
	fetcher     Fetcher
	variant     Variant
	token       string
	cacheMaxAge int
	faultPolicy FaultPolicy
	logger      *logrus.Entry
	validate    *validator.Validate
}

// target is the validated form of the url parameter
type target struct {
	URL string `validate:"required"`
}

// New creates a new Relay
func New(fetcher Fetcher, opts ...Option) *Relay {
	r := &Relay{
		fetcher:     fetcher,
		variant:     Standalone,
		cacheMaxAge: DefaultCacheMaxAge,
		faultPolicy: FaultPropagate,
		logger:      logrus.NewEntry(logrus.StandardLogger()),
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Variant returns the deployment shape of the relay
func (r *Relay) Variant() Variant {
	return r.variant
}

// Handle runs extract-validate-fetch for one request.
// Validation failures and soft failures always produce a Response; a fetch fault
// produces a *FetchFaultError only under FaultPropagate.
func (r *Relay) Handle(ctx context.Context, p Params) (*Response, error) {
	if r.variant == Managed && !r.tokenMatches(p.Token) {
		r.logger.WithError(ErrBadToken).Warn("Rejected relay request")
		return r.respond(http.StatusBadRequest, BadTokenBody), nil
	}

	if err := r.validate.Struct(target{URL: p.URLValue()}); err != nil {
		r.logger.WithError(ErrMissingURL).Warn("Rejected relay request")
		if r.variant == Standalone {
			return &Response{StatusCode: http.StatusBadRequest, Headers: map[string]string{}}, nil
		}
		return r.respond(http.StatusBadRequest, badURLBody(p.URL)), nil
	}

	url := *p.URL
	logger := r.logger.WithField("url", url)

	body, err := r.fetcher.Fetch(ctx, url)
	switch {
	case err == nil:
		logger.WithField("bytes", len(body)).Debug("Relayed upstream body")
		return r.respond(http.StatusOK, body), nil

	case IsSoftFailure(err):
		logger.WithError(err).Warn("Upstream answered with non-success status")
		return r.respond(http.StatusOK, ""), nil

	default:
		logger.WithFields(logrus.Fields{
			"error":        err.Error(),
			"fault_policy": string(r.faultPolicy),
		}).Error("Upstream fetch fault")

		switch r.faultPolicy {
		case FaultEmpty:
			return r.respond(http.StatusOK, ""), nil
		case FaultBadGateway:
			return r.respond(http.StatusBadGateway, ""), nil
		default:
			if !IsFetchFault(err) {
				err = NewFetchFaultError(url, err)
			}
			return nil, err
		}
	}
}

// Headers returns the fixed headers for a response with the given status
func (r *Relay) Headers(statusCode int) map[string]string {
	if r.variant == Managed {
		return map[string]string{
			"Content-Type":  "text/plain",
			"Cache-Control": "max-age=" + strconv.Itoa(r.cacheMaxAge),
		}
	}

	headers := map[string]string{"Content-Type": "text/plain"}
	if statusCode == http.StatusOK {
		headers["Access-Control-Allow-Origin"] = "*"
	}
	return headers
}

func (r *Relay) respond(statusCode int, body string) *Response {
	return &Response{
		StatusCode: statusCode,
		Headers:    r.Headers(statusCode),
		Body:       body,
	}
}

func (r *Relay) tokenMatches(token *string) bool {
	if token == nil || r.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*token), []byte(r.token)) == 1
}

// badURLBody echoes the offending value the way callers of the managed function expect
func badURLBody(url *string) string {
	if url == nil {
		return "Bad url=None"
	}
	return fmt.Sprintf("Bad url='%s'", *url)
}
