package receipt

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultMaxUploadSize is used when ServerConfig leaves MaxUploadSize at zero
const DefaultMaxUploadSize = int64(20 << 20) // 20MB

// Server handles HTTP requests for receipt validation
type Server struct {
	service       *Service
	basicAuth     BasicAuth
	maxUploadSize int64
	mux           *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// ServerConfig holds the HTTP settings
type ServerConfig struct {
	BasicAuth     BasicAuth
	MaxUploadSize int64
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, cfg ServerConfig) *Server {
	return NewServerWithMux(service, cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, cfg ServerConfig, mux *http.ServeMux) *Server {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	s := &Server{
		service:       service,
		basicAuth:     cfg.BasicAuth,
		maxUploadSize: cfg.MaxUploadSize,
		mux:           mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Check"`)
			corsError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Health checks stay open so load balancers need no credentials
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Chat workflow endpoints: respond with the amount or false
	s.mux.HandleFunc("POST /validar", s.requireAuth(s.handleValidate))
	s.mux.HandleFunc("POST /validar-url", s.requireAuth(s.handleValidateURL))

	// API endpoints - validation history
	s.mux.HandleFunc("GET /api/validations/{id}/file", s.requireAuth(s.handleGetValidationFile))
	s.mux.HandleFunc("GET /api/validations/{id}", s.requireAuth(s.handleGetValidation))
	s.mux.HandleFunc("GET /api/validations", s.requireAuth(s.handleListValidations))
	s.mux.HandleFunc("POST /api/validations", s.requireAuth(s.handleCreateValidation))

	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleStatus))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
