package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// writeServiceError maps err to a status and writes it. Client errors carry only the sentinel's
// message; unexpected failures are logged and reported without internal detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, msg := classify(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, msg)
		return
	}
	logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	if knownFailure(err) {
		writeError(w, status, err.Error())
		return
	}
	writeError(w, status, "internal server error")
}
