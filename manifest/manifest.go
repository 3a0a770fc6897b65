package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonwraymond/toolinvoke/tool"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingEnv reports ${VAR} references to unset variables.
	ErrMissingEnv = errors.New("manifest: missing environment variables")

	// ErrSecretPath reports a file secret reference outside the secrets directory.
	ErrSecretPath = errors.New("manifest: secret path escapes its directory")

	// ErrUnknownProvider reports a secretref naming an unregistered provider.
	ErrUnknownProvider = errors.New("manifest: unknown secret provider")

	// ErrEmptySecret reports a secret that resolved to the empty string.
	ErrEmptySecret = errors.New("manifest: secret resolved to empty value")

	// ErrDecode reports a document that is not a valid manifest.
	ErrDecode = errors.New("manifest: decode failed")
)

// Format selects the manifest syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks JSON for ".json" files and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Manifest is a decoded manifest document.
type Manifest struct {
	Tools []ToolSpec `yaml:"tools" json:"tools"`
}

// ToolSpec declares one tool. Durations are integer milliseconds.
type ToolSpec struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Intent       string `yaml:"intent,omitempty" json:"intent,omitempty"`
	InputSchema  any    `yaml:"inputSchema,omitempty" json:"inputSchema,omitempty"`
	ResultSchema any    `yaml:"resultSchema,omitempty" json:"resultSchema,omitempty"`
	Cache        int64  `yaml:"cache,omitempty" json:"cache,omitempty"`
	ClientCache  int64  `yaml:"clientCache,omitempty" json:"clientCache,omitempty"`

	// ValidateInput and ValidateResult default to true.
	ValidateInput  *bool `yaml:"validateInput,omitempty" json:"validateInput,omitempty"`
	ValidateResult *bool `yaml:"validateResult,omitempty" json:"validateResult,omitempty"`

	// Exactly one of Func and HTTP must be set.
	Func string    `yaml:"func,omitempty" json:"func,omitempty"`
	HTTP *HTTPSpec `yaml:"http,omitempty" json:"http,omitempty"`
}

// HTTPSpec declares a remote endpoint.
type HTTPSpec struct {
	Method       string            `yaml:"method,omitempty" json:"method,omitempty"`
	URL          string            `yaml:"url" json:"url"`
	Redirect     string            `yaml:"redirect,omitempty" json:"redirect,omitempty"`
	ProxyHeaders []string          `yaml:"proxyHeaders,omitempty" json:"proxyHeaders,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Funcs maps the names used by "func:" entries to implementations.
type Funcs map[string]tool.Func

// Decode reads a manifest. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrDecode, format)
	}
	return &m, nil
}

// Parse decodes a manifest held in memory.
func Parse(data []byte, format Format) (*Manifest, error) {
	return Decode(bytes.NewReader(data), format)
}

// Load reads the manifest at path, choosing the format from its extension.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f, FormatFromPath(path))
}

// Descriptors converts every tool spec. Errors from all specs are joined;
// each is a *tool.ConfigurationError.
func (m *Manifest) Descriptors(ctx context.Context, funcs Funcs, resolver *Resolver) ([]tool.Descriptor, error) {
	descs := make([]tool.Descriptor, 0, len(m.Tools))
	var errs []error
	for _, spec := range m.Tools {
		desc, err := spec.Descriptor(ctx, funcs, resolver)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		descs = append(descs, desc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return descs, nil
}

// Toolbox builds every tool into a new Toolbox.
func (m *Manifest) Toolbox(ctx context.Context, funcs Funcs, resolver *Resolver, opts ...tool.Option) (*tool.Toolbox, error) {
	descs, err := m.Descriptors(ctx, funcs, resolver)
	if err != nil {
		return nil, err
	}
	box := tool.NewToolbox(opts...)
	var errs []error
	for _, desc := range descs {
		if _, err := box.Build(desc); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return box, nil
}

// Descriptor converts one spec. Schema compilation and the remaining
// descriptor checks happen in tool.Build.
func (s ToolSpec) Descriptor(ctx context.Context, funcs Funcs, resolver *Resolver) (tool.Descriptor, error) {
	fail := func(field, reason string, cause error) error {
		return &tool.ConfigurationError{Tool: s.Name, Field: field, Reason: reason, Cause: cause}
	}

	desc := tool.Descriptor{
		Name:                    s.Name,
		Description:             s.Description,
		Intent:                  tool.Intent(s.Intent),
		InputSchema:             s.InputSchema,
		ResultSchema:            s.ResultSchema,
		Cache:                   time.Duration(s.Cache) * time.Millisecond,
		ClientCache:             time.Duration(s.ClientCache) * time.Millisecond,
		DisableInputValidation:  s.ValidateInput != nil && !*s.ValidateInput,
		DisableResultValidation: s.ValidateResult != nil && !*s.ValidateResult,
	}

	switch {
	case s.Func != "" && s.HTTP != nil:
		return tool.Descriptor{}, fail("dispatch", "exactly one of func or http endpoint is allowed", nil)
	case s.Func != "":
		fn, ok := funcs[s.Func]
		if !ok || fn == nil {
			return tool.Descriptor{}, fail("func", fmt.Sprintf("%q is not provided", s.Func), nil)
		}
		desc.Dispatch = tool.Local(fn)
	case s.HTTP != nil:
		endpoint, err := s.HTTP.endpoint(ctx, resolver)
		if err != nil {
			var cerr *tool.ConfigurationError
			if errors.As(err, &cerr) {
				cerr.Tool = s.Name
			}
			return tool.Descriptor{}, err
		}
		desc.Dispatch = tool.Remote(endpoint)
	}
	return desc, nil
}

func (h HTTPSpec) endpoint(ctx context.Context, resolver *Resolver) (tool.HTTPEndpoint, error) {
	u, err := resolver.ResolveValue(ctx, h.URL)
	if err != nil {
		return tool.HTTPEndpoint{}, &tool.ConfigurationError{Field: "http.url", Reason: "cannot be resolved", Cause: err}
	}
	headers, err := resolver.ResolveMap(ctx, h.Headers)
	if err != nil {
		return tool.HTTPEndpoint{}, &tool.ConfigurationError{Field: "http.headers", Reason: "cannot be resolved", Cause: err}
	}
	return tool.HTTPEndpoint{
		Method:       h.Method,
		URL:          u,
		Redirect:     tool.RedirectMode(h.Redirect),
		ProxyHeaders: h.ProxyHeaders,
		Headers:      headers,
	}, nil
}
