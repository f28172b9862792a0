package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"room-service/internal/order/app/core"
	"room-service/internal/order/domain/dto"
	"room-service/internal/order/domain/models"
	"room-service/internal/xpkg/logger"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Orders"

var exportHeader = []string{"order_no", "guest_name", "room_no", "items", "total", "status", "payment_status", "created_at"}

// ExportService renders the orders of one calendar day as a spreadsheet.
type ExportService struct {
	orderRepo core.IOrderRepo
	loc       *time.Location
	now       func() time.Time
	mylog     logger.Logger
}

func NewExportService(orderRepo core.IOrderRepo, loc *time.Location, mylog logger.Logger) *ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{
		orderRepo: orderRepo,
		loc:       loc,
		now:       time.Now,
		mylog:     mylog,
	}
}

// ResolveDate returns date, or today in the service time zone when date is empty.
func (es *ExportService) ResolveDate(date string) string {
	if date == "" {
		return es.now().In(es.loc).Format(core.DateLayout)
	}
	return date
}

func (es *ExportService) CSV(ctx context.Context, w io.Writer, date string) error {
	orders, err := es.load(ctx, date)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range orders {
		if err := cw.Write(es.row(o)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (es *ExportService) XLSX(ctx context.Context, w io.Writer, date string) error {
	orders, err := es.load(ctx, date)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			es.mylog.Action("xlsx_close_failed").Error("Failed to close workbook", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, o := range orders {
		row := es.row(o)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		// numeric cells stay numeric
		values[3] = len(o.Items)
		values[4] = o.Total
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func (es *ExportService) load(ctx context.Context, date string) ([]models.Order, error) {
	date = es.ResolveDate(date)
	orders, err := es.orderRepo.List(ctx, dto.ListFilter{Date: date})
	if err != nil {
		return nil, err
	}
	es.mylog.Action("export").Info("Exporting orders", "date", date, "count", len(orders))
	return orders, nil
}

func (es *ExportService) row(o models.Order) []string {
	return []string{
		o.OrderNo,
		o.GuestName,
		o.RoomNo,
		strconv.Itoa(len(o.Items)),
		strconv.FormatInt(o.Total, 10),
		string(o.Status),
		string(o.PaymentStatus),
		o.CreatedAt.In(es.loc).Format(time.RFC3339),
	}
}

func setRow(f *excelize.File, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
