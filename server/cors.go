package server

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	AllowOriginHeader       = "Access-Control-Allow-Origin"
	AllowHeadersHeader      = "Access-Control-Allow-Headers"
	AllowMethodsHeader      = "Access-Control-Allow-Methods"
	AllControlRequestHeader = "Access-Control-Request-Method"
	AllowCredentialsHeader  = "Access-Control-Allow-Credentials"
	ExposeHeadersHeader     = "Access-Control-Expose-Headers"
	MaxAgeHeader            = "Access-Control-Max-Age"

	// session header used by the streamable transport
	sessionHeader = "Mcp-Session-Id"
	wildcard      = "*"
)

var (
	defaultAllowHeaders  = []string{"Content-Type", "Authorization", sessionHeader, VersionHeader}
	defaultExposeHeaders = []string{"Content-Type", sessionHeader, VersionHeader}
)

// Cors lets web views served from other origins reach the HTTP transports
type Cors struct {
	AllowCredentials *bool    `yaml:"allowCredentials,omitempty" json:"allowCredentials,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
	AllowMethods     []string `yaml:"allowMethods,omitempty" json:"allowMethods,omitempty"`
	AllowOrigins     []string `yaml:"allowOrigins,omitempty" json:"allowOrigins,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty" json:"exposeHeaders,omitempty"`
	MaxAge           *int64   `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
}

// corsPolicy is a Cors resolved once at server construction; a nil Cors passes requests through
type corsPolicy struct {
	enabled       bool
	anyOrigin     bool
	origins       map[string]bool
	allowHeaders  string
	exposeHeaders string
	credentials   string
	maxAge        string
	echoMethod    bool
}

func newCorsPolicy(cors *Cors) *corsPolicy {
	ret := &corsPolicy{}
	if cors == nil {
		return ret
	}
	ret.enabled = true
	ret.origins = make(map[string]bool, len(cors.AllowOrigins))
	for _, origin := range cors.AllowOrigins {
		if origin == wildcard {
			ret.anyOrigin = true
		}
		ret.origins[origin] = true
	}
	ret.allowHeaders = headerList(cors.AllowHeaders, defaultAllowHeaders)
	ret.exposeHeaders = headerList(cors.ExposeHeaders, defaultExposeHeaders)
	if cors.AllowCredentials != nil {
		ret.credentials = strconv.FormatBool(*cors.AllowCredentials)
	}
	if cors.MaxAge != nil {
		ret.maxAge = strconv.FormatInt(*cors.MaxAge, 10)
	}
	ret.echoMethod = len(cors.AllowMethods) > 0
	return ret
}

// headerList joins names, a lone "*" expands to defaults
func headerList(names []string, defaults []string) string {
	if len(names) == 1 && names[0] == wildcard {
		names = defaults
	}
	return strings.Join(names, ", ")
}

func (p *corsPolicy) allows(origin string) bool {
	return origin == "" || p.anyOrigin || p.origins[origin]
}

// Middleware rejects foreign origins, decorates allowed responses and answers preflight requests
func (p *corsPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.enabled {
			next.ServeHTTP(w, r)
			return
		}
		origin := r.Header.Get("Origin")
		if !p.allows(origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		p.decorate(w.Header(), r, origin)
		if r.Method == http.MethodOptions && r.Header.Get(AllControlRequestHeader) != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *corsPolicy) decorate(header http.Header, r *http.Request, origin string) {
	switch {
	case origin != "":
		header.Set(AllowOriginHeader, origin)
	case p.anyOrigin:
		header.Set(AllowOriginHeader, wildcard)
	}
	if requested := r.Header.Get(AllControlRequestHeader); r.Method == http.MethodOptions && requested != "" {
		header.Set(AllowMethodsHeader, requested)
	} else if p.echoMethod {
		header.Set(AllowMethodsHeader, r.Method)
	}
	set := func(key, value string) {
		if value != "" {
			header.Set(key, value)
		}
	}
	set(AllowHeadersHeader, p.allowHeaders)
	set(ExposeHeadersHeader, p.exposeHeaders)
	set(AllowCredentialsHeader, p.credentials)
	set(MaxAgeHeader, p.maxAge)
}

// DefaultCors allows any origin, used by local development setups
func DefaultCors() *Cors {
	allowCredentials := true
	return &Cors{
		AllowCredentials: &allowCredentials,
		AllowHeaders:     []string{wildcard},
		AllowMethods:     []string{wildcard},
		AllowOrigins:     []string{wildcard},
		ExposeHeaders:    []string{wildcard},
	}
}
