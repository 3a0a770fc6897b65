package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jonwraymond/toolinvoke/schema"
)

// ErrRedirectNotAllowed is the cause of a TransportError raised by
// RedirectError endpoints.
var ErrRedirectNotAllowed = errors.New("tool: redirect not allowed")

// maxErrorBody bounds the response body kept on a TransportError.
const maxErrorBody = 512

type httpDispatcher struct {
	tool     string
	intent   Intent
	endpoint HTTPEndpoint
	client   Doer
}

func newHTTPDispatcher(name string, intent Intent, endpoint HTTPEndpoint, client Doer) *httpDispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if hc, ok := client.(*http.Client); ok {
		client = withRedirectPolicy(hc, endpoint.Redirect)
	}
	return &httpDispatcher{tool: name, intent: intent, endpoint: endpoint, client: client}
}

// withRedirectPolicy returns a shallow copy of hc enforcing mode.
func withRedirectPolicy(hc *http.Client, mode RedirectMode) *http.Client {
	switch mode {
	case RedirectError:
		c := *hc
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return ErrRedirectNotAllowed
		}
		return &c
	case RedirectManual:
		c := *hc
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return &c
	default:
		return hc
	}
}

// method picks the HTTP method for one call.
func (d *httpDispatcher) method(input any) string {
	if d.endpoint.Method != "" {
		return strings.ToUpper(d.endpoint.Method)
	}
	if d.intent == IntentAction {
		return http.MethodPost
	}
	switch input.(type) {
	case nil, map[string]any:
		return http.MethodGet
	default:
		return http.MethodPost
	}
}

func (d *httpDispatcher) call(ctx context.Context, input any) (any, error) {
	method := d.method(input)
	req, err := d.newRequest(ctx, method, input)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Tool: d.tool, Method: method, URL: d.endpoint.URL, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			Tool:       d.tool,
			Method:     method,
			URL:        d.endpoint.URL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Tool: d.tool, Method: method, URL: d.endpoint.URL, Cause: err}
	}
	return d.decode(method, resp, body)
}

func (d *httpDispatcher) newRequest(ctx context.Context, method string, input any) (*http.Request, error) {
	u, err := url.Parse(d.endpoint.URL)
	if err != nil {
		return nil, &ConfigurationError{Tool: d.tool, Field: "http.url", Reason: "is not a valid URL", Cause: err}
	}

	var body io.Reader
	if bodiless(method) {
		if err := mergeQuery(u, input); err != nil {
			return nil, &ConfigurationError{Tool: d.tool, Field: "http.method", Reason: method + " cannot carry this input", Cause: err}
		}
	} else if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, &TransportError{Tool: d.tool, Method: method, URL: d.endpoint.URL, Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &TransportError{Tool: d.tool, Method: method, URL: d.endpoint.URL, Cause: err}
	}

	req.Header.Set("Accept", "application/json, text/plain")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range d.endpoint.Headers {
		req.Header.Set(k, v)
	}
	if inbound := HeadersFromContext(ctx); inbound != nil {
		for _, name := range d.endpoint.ProxyHeaders {
			values := inbound.Values(name)
			if len(values) == 0 {
				continue
			}
			req.Header.Del(name)
			for _, v := range values {
				req.Header.Add(name, v)
			}
		}
	}
	return req, nil
}

// decode parses a 2xx response body by content type. A 204, or an empty
// body that is untyped or JSON, yields nil; an empty text/plain body is "".
func (d *httpDispatcher) decode(method string, resp *http.Response, body []byte) (any, error) {
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	empty := len(bytes.TrimSpace(body)) == 0
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" && empty {
		return nil, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &UnsupportedContentTypeError{Tool: d.tool, ContentType: contentType}
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		if empty {
			return nil, nil
		}
		out, err := schema.Unmarshal(body)
		if err != nil {
			return nil, &TransportError{
				Tool:   d.tool,
				Method: method,
				URL:    d.endpoint.URL,
				Cause:  fmt.Errorf("decode JSON response: %w", err),
			}
		}
		return out, nil
	case mediaType == "text/plain":
		return string(body), nil
	default:
		return nil, &UnsupportedContentTypeError{Tool: d.tool, ContentType: contentType}
	}
}

func bodiless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// mergeQuery adds the fields of an object input to u's query string.
// Arrays become repeated parameters; nested objects are JSON encoded; nulls
// are skipped.
func mergeQuery(u *url.URL, input any) error {
	if input == nil {
		return nil
	}
	obj, ok := input.(map[string]any)
	if !ok {
		return fmt.Errorf("query input must be an object, got %T", input)
	}

	q := u.Query()
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				s, err := queryValue(item)
				if err != nil {
					return err
				}
				q.Add(k, s)
			}
		default:
			s, err := queryValue(v)
			if err != nil {
				return err
			}
			q.Add(k, s)
		}
	}
	u.RawQuery = q.Encode()
	return nil
}

func queryValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
