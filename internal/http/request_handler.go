package httpapi

import (
	"net/http"

	"atelier-commission/internal/service"

	"go.uber.org/zap"
)

// RequestHandler exposes the commission request lifecycle over HTTP.
type RequestHandler struct {
	admission *service.AdmissionService
	decision  *service.DecisionService
	queries   *service.RequestQueryService
	logger    *zap.Logger
}

func NewRequestHandler(
	admission *service.AdmissionService,
	decision *service.DecisionService,
	queries *service.RequestQueryService,
	logger *zap.Logger,
) *RequestHandler {
	return &RequestHandler{
		admission: admission,
		decision:  decision,
		queries:   queries,
		logger:    logger,
	}
}

// POST /commission/api/v1/requests
func (h *RequestHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var input service.SubmitRequestInput
	if err := readBodyJSON(r, 1<<20, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	req, err := h.admission.SubmitRequest(r.Context(), input)
	if err != nil {
		h.logger.Warn("SubmitRequest failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(req))
}

type determineBody struct {
	Accepted bool `json:"accepted"`
}

// POST /commission/api/v1/requests/{requestId}/decision
func (h *RequestHandler) DetermineRequest(w http.ResponseWriter, r *http.Request, requestID string) {
	var body determineBody
	if err := readBodyJSON(r, 1<<16, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	req, err := h.decision.DetermineRequest(r.Context(), requestID, body.Accepted)
	if err != nil {
		h.logger.Warn("DetermineRequest failed",
			zap.String("request_id", requestID),
			zap.Bool("accepted", body.Accepted),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(req))
}

// GET /commission/api/v1/requests/order/{orderId}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request, orderID string) {
	req, err := h.queries.GetRequest(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(req))
}

// GET /commission/api/v1/requests?commission_id=...
func (h *RequestHandler) GetRequestList(w http.ResponseWriter, r *http.Request) {
	list, err := h.queries.GetRequestList(r.Context(), r.URL.Query().Get("commission_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GET /commission/api/v1/users/{userId}/requests
func (h *RequestHandler) GetUserRequestList(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := h.queries.GetUserRequestList(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GET /commission/api/v1/requests/check?user_id=...&form_id=...
func (h *RequestHandler) CheckUserRequested(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requested, err := h.queries.CheckUserRequested(r.Context(), q.Get("user_id"), q.Get("form_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"requested": requested}))
}

// GET /commission/api/v1/artists/{artistId}/commissions
func (h *RequestHandler) GetArtistCommissions(w http.ResponseWriter, r *http.Request, artistID string) {
	list, err := h.queries.GetArtistCommissions(r.Context(), artistID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}
