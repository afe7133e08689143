package rest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	list, err := h.accounts.List(r.Context(), actor)
	if err != nil {
		writeError(r.Context(), w, h.logger, "list users", err)
		return
	}

	out := make([]accountDTO, 0, len(list))
	for i := range list {
		out = append(out, toAccountDTO(&list[i]))
	}
	writeOK(w, out, "")
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request format - expected JSON")
		return
	}
	if err := validateRequest(req); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.accounts.Create(r.Context(), actor, services.CreateAccountInput{
		Role:     models.Role(req.Role),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, "create user", err)
		return
	}

	h.logger.Info(r.Context(), "user created", "account_id", a.ID, "role", a.Role, "by", actor.ID)
	writeOK(w, toAccountDTO(a), "User created successfully")
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request format - expected JSON")
		return
	}
	if err := validateRequest(req); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	in := services.UpdateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	a, err := h.accounts.Update(r.Context(), actor, id, in)
	if err != nil {
		writeError(r.Context(), w, h.logger, "update user", err)
		return
	}
	writeOK(w, toAccountDTO(a), "User updated successfully")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.accounts.SoftDelete(r.Context(), actor, id); err != nil {
		writeError(r.Context(), w, h.logger, "delete user", err)
		return
	}
	writeOK(w, nil, "User deleted successfully")
}
