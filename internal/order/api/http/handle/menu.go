package handle

import (
	"net/http"

	"room-service/internal/order/app/services"
	"room-service/internal/order/domain/dto"
	"room-service/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
)

type MenuHandler struct {
	menuService *services.MenuService
	mylog       logger.Logger
}

func NewMenuHandler(menuService *services.MenuService, mylog logger.Logger) *MenuHandler {
	return &MenuHandler{
		menuService: menuService,
		mylog:       mylog,
	}
}

func (mh *MenuHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestContext(r)
		defer cancel()

		items, err := mh.menuService.Get(ctx, chi.URLParam(r, "version"))
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, items)
	}
}

func (mh *MenuHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.MenuUploadRequest
		if err := decodeJSON(r, &req); err != nil {
			mh.mylog.Action("parse_failed").Error("Failed to parse menu", err)
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		n, err := mh.menuService.Upload(ctx, chi.URLParam(r, "version"), req)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.MenuUploadResponse{OK: true, Count: n})
	}
}
