// Package secret resolves secret references such as the paywall api key and the auth signing key.
//
// A reference has the form secret:<URL>[|<kms key>], for example
// secret:~/.secret/paywall.json|blowfish://default. Other values are returned as is.
package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/scy"
	_ "github.com/viant/scy/kms/blowfish"
	"go.uber.org/zap"
)

// Prefix marks a secret reference
const Prefix = "secret:"

// Loader loads the raw value of a secret resource
type Loader func(ctx context.Context, resource *scy.Resource) (string, error)

// Resolver resolves secret references
type Resolver struct {
	load   Loader
	logger *zap.Logger
}

// Option configures a Resolver
type Option func(r *Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithLoader replaces the scy backed loader
func WithLoader(loader Loader) Option {
	return func(r *Resolver) {
		r.load = loader
	}
}

// IsReference returns true for secret references
func IsReference(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Parse splits a reference into a scy resource
func Parse(value string) (*scy.Resource, error) {
	if !IsReference(value) {
		return nil, fmt.Errorf("not a secret reference: %q", value)
	}
	location := strings.TrimPrefix(value, Prefix)
	URL, key, _ := strings.Cut(location, "|")
	if URL = strings.TrimSpace(URL); URL == "" {
		return nil, errors.New("secret reference URL was empty")
	}
	return scy.NewResource("", URL, strings.TrimSpace(key)), nil
}

// Resolve returns value, or the secret it references
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	resource, err := Parse(value)
	if err != nil {
		return "", err
	}
	resolved, err := r.load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load secret %v: %w", resource.URL, err)
	}
	r.logger.Debug("secret resolved", zap.String("url", resource.URL))
	return strings.TrimSpace(resolved), nil
}

// New creates a resolver backed by scy
func New(options ...Option) *Resolver {
	ret := &Resolver{logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.load == nil {
		service := scy.New()
		ret.load = func(ctx context.Context, resource *scy.Resource) (string, error) {
			loaded, err := service.Load(ctx, resource)
			if err != nil {
				return "", err
			}
			return loaded.String(), nil
		}
	}
	return ret
}
