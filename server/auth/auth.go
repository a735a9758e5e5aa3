package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/jsonrpc"
)

// Unauthorized is the JSON-RPC error code returned for rejected requests
const Unauthorized = -32001

// Service authorizes HTTP JSON-RPC requests with bearer tokens
type Service struct {
	*Config
	parser *jwt.Parser
}

// Middleware rejects protected JSON-RPC calls without a valid bearer token
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.shouldBypass(r) {
			next.ServeHTTP(w, r)
			return
		}
		var id interface{}
		if r.Method == http.MethodPost {
			data, jRequest, err := s.extractJSONRPCRequest(r)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
			if !s.protects(jRequest.Method) {
				next.ServeHTTP(w, r)
				return
			}
			id = jRequest.Id
		}
		claims, err := s.Verify(bearerToken(r))
		if err != nil {
			s.unauthorized(w, id, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Service) shouldBypass(r *http.Request) bool {
	if s.ExcludeURI != "" && strings.HasPrefix(r.URL.Path, s.ExcludeURI) {
		return true
	}
	switch r.Method {
	case http.MethodPost:
		return false
	case http.MethodGet:
		return !s.ProtectStreams
	}
	return true
}

func (s *Service) extractJSONRPCRequest(r *http.Request) ([]byte, *jsonrpc.Request, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	defer r.Body.Close()

	type jsonrpcRequest jsonrpc.Request
	jRequest := &jsonrpcRequest{}
	if err := json.Unmarshal(data, jRequest); err != nil {
		return nil, nil, err
	}
	return data, (*jsonrpc.Request)(jRequest), nil
}

func (s *Service) unauthorized(w http.ResponseWriter, id interface{}, cause error) {
	reason := "invalid_token"
	if errors.Is(cause, ErrMissingToken) {
		reason = "invalid_request"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="paywall", error="`+reason+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": jsonrpc.Version,
		"id":      id,
		"error": map[string]interface{}{
			"code":    Unauthorized,
			"message": "Unauthorized: " + cause.Error(),
		},
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// New creates an authorization service
func New(config *Config) (*Service, error) {
	if config == nil || config.Secret == "" {
		return nil, errors.New("auth: secret was empty")
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if config.Issuer != "" {
		options = append(options, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		options = append(options, jwt.WithAudience(config.Audience))
	}
	if config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(config.Leeway))
	}
	return &Service{Config: config, parser: jwt.NewParser(options...)}, nil
}
