package http

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func statusFor(kind string) int {
	switch kind {
	case common.KindInviteRequired, common.KindInvalidInvite, common.KindDuplicateEmail, common.KindValidation:
		return http.StatusBadRequest
	case common.KindInvalidToken, common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindAlreadyExists:
		return http.StatusConflict
	case common.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.Kind(err)
	msg := err.Error()
	if kind == common.KindInternal {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = common.ErrorInternal.Error()
	}
	writeJSON(w, statusFor(kind), errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
