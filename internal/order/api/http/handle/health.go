package handle

import (
	"net/http"

	"room-service/internal/order/app/core"
	"room-service/internal/xpkg/logger"
)

type HealthHandler struct {
	db    core.IDB
	mylog logger.Logger
}

func NewHealthHandler(db core.IDB, mylog logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:    db,
		mylog: mylog,
	}
}

func (hh *HealthHandler) Check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestContext(r)
		defer cancel()

		if err := hh.db.IsAlive(ctx); err != nil {
			hh.mylog.Action("health_check_failed").Error("Database is not reachable", err)
			jsonError(w, http.StatusServiceUnavailable, core.ErrDBConn)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
