package rest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/diagnexus/internal/common"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request format - expected JSON")
		return
	}
	if err := validateRequest(req); err != nil {
		writeFail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	res, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		LoginsTotal.WithLabelValues("failure").Inc()
		writeError(r.Context(), w, h.logger, "login", err)
		return
	}
	LoginsTotal.WithLabelValues("success").Inc()
	logWarnings(r.Context(), h.logger, res.Warnings)

	h.logger.Info(r.Context(), "login", "account_id", res.Account.ID, "role", res.Account.Role)

	w.Header().Set(common.AuthTokenHeaderName, res.Token)
	writeOK(w, loginDTO{
		accountDTO: toAccountDTO(res.Account),
		Token:      res.Token,
		ExpiresAt:  res.ExpiresAt,
	}, "Login successful")
}
