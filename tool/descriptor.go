package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Intent classifies a tool as cacheable or side-effecting.
type Intent string

const (
	// IntentResource marks a read-like, idempotent tool. Only resource tools
	// are cached, and remote resource tools default to GET.
	IntentResource Intent = "resource"

	// IntentAction marks a side-effecting tool. Action tools are never cached
	// and remote action tools default to POST. An empty Intent means action.
	IntentAction Intent = "action"
)

// ParseIntent parses an intent name. The empty string is IntentAction.
func ParseIntent(s string) (Intent, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentResource:
		return IntentResource, nil
	case IntentAction, "":
		return IntentAction, nil
	default:
		return "", fmt.Errorf("unknown intent %q", s)
	}
}

// Func performs the work of a local tool. It receives the input normalized
// to its JSON form.
type Func func(ctx context.Context, input any) (any, error)

// Dispatch selects how a tool performs its work. The only implementations
// are returned by Local and Remote, so a Descriptor can never carry both.
type Dispatch interface {
	// Kind returns "func" or "http".
	Kind() string

	dispatch()
}

type localDispatch struct {
	fn Func
}

func (localDispatch) Kind() string { return "func" }
func (localDispatch) dispatch()    {}

type remoteDispatch struct {
	endpoint HTTPEndpoint
}

func (remoteDispatch) Kind() string { return "http" }
func (remoteDispatch) dispatch()    {}

// Local dispatches to fn.
func Local(fn Func) Dispatch {
	return localDispatch{fn: fn}
}

// Remote dispatches to an HTTP endpoint.
func Remote(endpoint HTTPEndpoint) Dispatch {
	return remoteDispatch{endpoint: endpoint.clone()}
}

// RedirectMode controls how a remote tool handles 3xx responses.
type RedirectMode string

const (
	// RedirectFollow follows redirects. It is the default.
	RedirectFollow RedirectMode = "follow"

	// RedirectError fails the dispatch with a TransportError on any redirect.
	RedirectError RedirectMode = "error"

	// RedirectManual does not follow redirects; the 3xx status is reported
	// as a TransportError carrying the status code.
	RedirectManual RedirectMode = "manual"
)

// HTTPEndpoint describes a remote tool.
type HTTPEndpoint struct {
	// Method is the HTTP method. Empty selects one per call: POST for action
	// tools, GET for object or nil input, POST for anything else.
	Method string

	// URL is the absolute endpoint URL. Its query string is preserved and
	// extended with GET input.
	URL string

	// Redirect is the redirect policy. Empty means RedirectFollow.
	// It is enforced only when the tool's Doer is an *http.Client.
	Redirect RedirectMode

	// ProxyHeaders names inbound headers, carried on the context with
	// WithHeaders, that are copied onto the outgoing request.
	ProxyHeaders []string

	// Headers are static headers set on every request.
	Headers map[string]string
}

func (e HTTPEndpoint) clone() HTTPEndpoint {
	out := e
	if e.ProxyHeaders != nil {
		out.ProxyHeaders = append([]string(nil), e.ProxyHeaders...)
	}
	if e.Headers != nil {
		out.Headers = make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// Descriptor declares a tool.
type Descriptor struct {
	// Name identifies the tool and namespaces its cache keys.
	Name string

	// Description documents the tool. It never affects behavior.
	Description string

	// Intent is IntentResource or IntentAction. Empty means IntentAction.
	Intent Intent

	// InputSchema and ResultSchema accept anything schema.Compile accepts.
	// Nil accepts every value.
	InputSchema  any
	ResultSchema any

	// Cache enables result caching for resource tools when positive.
	Cache time.Duration

	// ClientCache is advertised to downstream consumers through
	// CacheControl. The pipeline never consults it.
	ClientCache time.Duration

	// Dispatch is Local(fn) or Remote(endpoint).
	Dispatch Dispatch

	// DisableInputValidation and DisableResultValidation skip schema
	// compilation and checking for that side.
	DisableInputValidation  bool
	DisableResultValidation bool
}

// CacheControl renders ClientCache as an HTTP Cache-Control value.
// It returns "" when ClientCache is not set.
func (d Descriptor) CacheControl() string {
	if d.ClientCache <= 0 {
		return ""
	}
	return fmt.Sprintf("max-age=%d", int64(d.ClientCache/time.Second))
}

func (d Descriptor) clone() Descriptor {
	out := d
	if r, ok := d.Dispatch.(remoteDispatch); ok {
		out.Dispatch = remoteDispatch{endpoint: r.endpoint.clone()}
	}
	return out
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// validate checks everything about d that does not need schema compilation.
// It returns the normalized intent.
func (d Descriptor) validate() (Intent, error) {
	fail := func(field, reason string, cause error) error {
		return &ConfigurationError{Tool: d.Name, Field: field, Reason: reason, Cause: cause}
	}

	if strings.TrimSpace(d.Name) == "" {
		return "", fail("name", "is required", nil)
	}
	intent, err := ParseIntent(string(d.Intent))
	if err != nil {
		return "", fail("intent", "must be resource or action", err)
	}
	if d.Cache < 0 {
		return "", fail("cache", "must not be negative", nil)
	}
	if d.ClientCache < 0 {
		return "", fail("clientCache", "must not be negative", nil)
	}

	switch dispatch := d.Dispatch.(type) {
	case nil:
		return "", fail("dispatch", "exactly one of func or http endpoint is required", nil)
	case localDispatch:
		if dispatch.fn == nil {
			return "", fail("dispatch", "func is nil", nil)
		}
	case remoteDispatch:
		if err := dispatch.endpoint.validate(fail); err != nil {
			return "", err
		}
	}
	return intent, nil
}

func (e HTTPEndpoint) validate(fail func(field, reason string, cause error) error) error {
	if strings.TrimSpace(e.URL) == "" {
		return fail("http.url", "is required", nil)
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return fail("http.url", "is not a valid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fail("http.url", "must be an absolute http or https URL", nil)
	}
	if e.Method != "" && !allowedMethods[strings.ToUpper(e.Method)] {
		return fail("http.method", fmt.Sprintf("unsupported method %q", e.Method), nil)
	}
	switch e.Redirect {
	case "", RedirectFollow, RedirectError, RedirectManual:
	default:
		return fail("http.redirect", fmt.Sprintf("unknown mode %q", e.Redirect), nil)
	}
	for _, name := range e.ProxyHeaders {
		if strings.TrimSpace(name) == "" {
			return fail("http.proxyHeaders", "header name must not be empty", nil)
		}
	}
	return nil
}
