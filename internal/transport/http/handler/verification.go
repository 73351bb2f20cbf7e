package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-bgg-gateway/internal/application/verification"
	"github.com/go-bgg-gateway/internal/pkg/validate"
	"github.com/go-bgg-gateway/internal/transport/http/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

type sendVerificationRequest struct {
	Email string `json:"email,omitempty"`
}

type exchangeCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// VerificationHandler serves the short-code email verification endpoints. Both require Auth.
type VerificationHandler struct {
	svc    verification.Service
	logger *zap.Logger
}

func NewVerificationHandler(svc verification.Service, logger *zap.Logger) *VerificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationHandler{svc: svc, logger: logger}
}

// Send handles POST /sendVerificationEmail. The body is optional.
func (h *VerificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sendVerificationRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SendVerificationEmail(r.Context(), caller, req.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

// Exchange handles POST /exchangeVerificationCode.
func (h *VerificationHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req exchangeCodeRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	oobCode, err := h.svc.ExchangeVerificationCode(r.Context(), caller, req.Code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OOBCodeEnvelope{OOBCode: oobCode})
}

func callerFrom(r *http.Request) (verification.Caller, bool) {
	tok, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		return verification.Caller{}, false
	}
	return verification.Caller{UID: tok.UID, Email: tok.Email}, true
}

// decodeBody returns io.EOF for an empty body.
func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
