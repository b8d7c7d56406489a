package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"

	"donation-nodes/pkg/clients/charityspurse"
)

const (
	// CharitysPurseName is the credential type name nodes refer to.
	CharitysPurseName = "charitysPurseApi"
	// DefaultBaseURL is used when the credentials carry no base URL.
	DefaultBaseURL   = charityspurse.DefaultBaseURL
	documentationURL = "https://api.charityspurse.ai/docs"
)

// ErrNotFound is returned by a Resolver when no credentials are stored under a name.
var ErrNotFound = errors.New("credentials not found")

// Property describes one field of a credential form.
type Property struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Password    bool   `json:"password,omitempty" yaml:"password,omitempty"`
	Default     string `json:"default" yaml:"default"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TestRequest is the smoke-test request a host issues to validate credentials.
type TestRequest struct {
	BaseURL string            `json:"baseURL" yaml:"baseURL"`
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method" yaml:"method"`
	Query   map[string]string `json:"qs" yaml:"qs"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

// Descriptor declares the shape of a credential type. It carries no logic.
type Descriptor struct {
	Name             string            `json:"name" yaml:"name"`
	DisplayName      string            `json:"displayName" yaml:"displayName"`
	DocumentationURL string            `json:"documentationUrl" yaml:"documentationUrl"`
	Properties       []Property        `json:"properties" yaml:"properties"`
	AuthHeaders      map[string]string `json:"authenticate" yaml:"authenticate"`
	Test             TestRequest       `json:"test" yaml:"test"`
}

// CharitysPurseAPI is the credential descriptor for the donation platform.
// Header values use the {{apiKey}} placeholder for the stored key.
func CharitysPurseAPI() Descriptor {
	return Descriptor{
		Name:             CharitysPurseName,
		DisplayName:      "CharitysPurse API",
		DocumentationURL: documentationURL,
		Properties: []Property{
			{
				DisplayName: "API Key",
				Name:        "apiKey",
				Type:        "string",
				Password:    true,
				Default:     "",
				Required:    true,
				Description: "The API key for your CharitysPurse account",
			},
			{
				DisplayName: "Base URL",
				Name:        "baseUrl",
				Type:        "string",
				Default:     DefaultBaseURL,
				Description: "Override the API host, e.g. for a staging environment",
			},
		},
		AuthHeaders: map[string]string{charityspurse.APIKeyHeader: "{{apiKey}}"},
		Test: TestRequest{
			BaseURL: DefaultBaseURL,
			URL:     charityspurse.ListPath,
			Method:  "GET",
			Query:   map[string]string{"since": testSince},
			Headers: map[string]string{charityspurse.APIKeyHeader: "{{apiKey}}"},
		},
	}
}

// Descriptors lists every credential type this module provides.
func Descriptors() []Descriptor {
	return []Descriptor{CharitysPurseAPI()}
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range Descriptors() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// APIKey holds resolved CharitysPurse credentials.
type APIKey struct {
	Key     string
	BaseURL string
}

// BaseURLOrDefault returns the configured base URL without trailing slashes.
func (k *APIKey) BaseURLOrDefault() string {
	if k == nil || k.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(k.BaseURL, "/")
}

// Resolver resolves credentials by name.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*APIKey, error)
}

// StaticResolver serves credentials loaded from configuration.
// It is safe for concurrent use.
type StaticResolver struct {
	mu    sync.RWMutex
	creds map[string]APIKey
}

// NewStaticResolver creates a resolver from a name → credentials map.
// Entries with an empty key are treated as absent.
func NewStaticResolver(creds map[string]APIKey) *StaticResolver {
	r := &StaticResolver{creds: make(map[string]APIKey, len(creds))}
	for name, c := range creds {
		if c.Key != "" {
			r.creds[name] = c
		}
	}
	return r
}

func (r *StaticResolver) Resolve(_ context.Context, name string) (*APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creds[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Set stores or replaces credentials under name.
func (r *StaticResolver) Set(name string, c APIKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[name] = c
}
