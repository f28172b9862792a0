package handle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"room-service/internal/order/app/services"
	"room-service/internal/xpkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService *services.ExportService
	mylog         logger.Logger
}

func NewExportHandler(exportService *services.ExportService, mylog logger.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		mylog:         mylog,
	}
}

func (eh *ExportHandler) CSV() http.HandlerFunc {
	return eh.export("text/csv; charset=utf-8", "csv", eh.exportService.CSV)
}

func (eh *ExportHandler) XLSX() http.HandlerFunc {
	return eh.export(xlsxContentType, "xlsx", eh.exportService.XLSX)
}

type renderFunc func(ctx context.Context, w io.Writer, date string) error

// export renders into a buffer first so a failure can still be reported
// with a proper status code.
func (eh *ExportHandler) export(contentType, ext string, render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := eh.exportService.ResolveDate(r.URL.Query().Get("date"))

		ctx, cancel := requestContext(r)
		defer cancel()

		var buf bytes.Buffer
		if err := render(ctx, &buf, date); err != nil {
			eh.mylog.Action("export_failed").Error("Failed to export orders", err, "date", date, "format", ext)
			serviceError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="orders-%s.%s"`, date, ext))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
