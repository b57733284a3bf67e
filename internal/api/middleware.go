package api

import (
	"fmt"
	"net/http"

	goversion "github.com/hashicorp/go-version"
)

// corsMiddleware adds CORS headers to allow browser access. Intended for
// local development; all origins are allowed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Version")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware logs requests at debug level. Health and readiness
// probes are skipped so periodic checks do not flood the log.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && r.URL.Path != "/readyz" {
			s.logger.Debug("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// versionGateMiddleware rejects clients whose X-Client-Version header is
// below the configured minimum. Requests without the header pass; the gate
// exists for managed rollouts, not authentication.
func (s *Server) versionGateMiddleware(next http.Handler) http.Handler {
	if s.minClientVersion == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Client-Version")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		clientVersion, err := goversion.NewVersion(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest,
				fmt.Sprintf("invalid X-Client-Version %q: %v", raw, err))
			return
		}

		if clientVersion.LessThan(s.minClientVersion) {
			writeError(w, http.StatusUpgradeRequired, ErrorCodeUpgradeRequired,
				fmt.Sprintf("client version %s is below the minimum %s", clientVersion, s.minClientVersion))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withMethod wraps a handler to enforce the HTTP method.
func (s *Server) withMethod(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
				fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
			return
		}
		handler(w, r)
	}
}
