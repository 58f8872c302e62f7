package httpapi

import (
	"net/http"
	"sync/atomic"

	"jobpilot/internal/config"
	"jobpilot/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
	// Set and Delete default to the keyring functions in package secrets.
	Set    func(account, password string) error
	Delete func(account string) error
}

type setIMAPPasswordReq struct {
	Password string `json:"password"`
}

func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setIMAPPasswordReq
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	set := h.Set
	if set == nil {
		set = secrets.SetIMAPPassword
	}
	cfg := h.CfgVal.Load().(config.Config)
	if err := set(secrets.IMAPKeyringAccount(cfg), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteIMAPPassword(w http.ResponseWriter, r *http.Request) {
	del := h.Delete
	if del == nil {
		del = secrets.DeleteIMAPPassword
	}
	cfg := h.CfgVal.Load().(config.Config)
	if err := del(secrets.IMAPKeyringAccount(cfg)); err != nil {
		WriteError(w, r, http.StatusBadRequest, "delete_failed", "failed to delete password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
