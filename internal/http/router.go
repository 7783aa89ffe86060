package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterCommissionRoutes wires the commission request API.
func (r *Router) RegisterCommissionRoutes(h *RequestHandler) {
	// submit + list
	r.Handle("/commission/api/v1/requests", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.SubmitRequest(w, req)
		case http.MethodGet:
			h.GetRequestList(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// check
	r.Handle("/commission/api/v1/requests/check", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CheckUserRequested(w, req)
	})

	// order/{orderId}
	r.Handle("/commission/api/v1/requests/order/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		orderID := strings.TrimPrefix(req.URL.Path, "/commission/api/v1/requests/order/")
		if orderID == "" || strings.Contains(orderID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetRequest(w, req, orderID)
	})

	// {requestId}/decision
	r.Handle("/commission/api/v1/requests/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/commission/api/v1/requests/")
		requestID, ok := strings.CutSuffix(rest, "/decision")
		if !ok || requestID == "" || strings.Contains(requestID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.DetermineRequest(w, req, requestID)
	})

	// users/{userId}/requests
	r.Handle("/commission/api/v1/users/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/commission/api/v1/users/")
		userID, ok := strings.CutSuffix(rest, "/requests")
		if !ok || userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetUserRequestList(w, req, userID)
	})

	// artists/{artistId}/commissions
	r.Handle("/commission/api/v1/artists/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/commission/api/v1/artists/")
		artistID, ok := strings.CutSuffix(rest, "/commissions")
		if !ok || artistID == "" || strings.Contains(artistID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetArtistCommissions(w, req, artistID)
	})

	// health
	r.Handle("/commission/api/v1/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
