package handle

import (
	"net/http"

	"room-service/internal/order/app/core"
	"room-service/internal/order/app/services"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/logger"
)

const (
	passphraseHeader = "x-passphrase"
	passphraseQuery  = "pass"
)

type AuthHandler struct {
	authService *services.AuthService
	mylog       logger.Logger
}

func NewAuthHandler(authService *services.AuthService, mylog logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		mylog:       mylog,
	}
}

func (ah *AuthHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}
		if err := ah.authService.Check(req.Passphrase); err != nil {
			ah.mylog.Action("login_failed").Warn("Rejected passphrase", "remote_addr", r.RemoteAddr)
			jsonError(w, http.StatusUnauthorized, err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.LoginResponse{OK: true})
	}
}

// RequirePassphrase rejects requests without the shared passphrase, taken
// from the x-passphrase header or the pass query parameter.
func (ah *AuthHandler) RequirePassphrase(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pass := r.Header.Get(passphraseHeader)
		if pass == "" {
			pass = r.URL.Query().Get(passphraseQuery)
		}
		if err := ah.authService.Check(pass); err != nil {
			jsonError(w, http.StatusUnauthorized, core.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
