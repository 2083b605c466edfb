package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Transactions"
)

var exportHeader = []string{"id", "date", "category", "description", "amount", "currency", "budget_id"}

type ExportHandler struct {
	Ledgers *service.Ledgers
}

// NewExportHandler создает обработчик выгрузки транзакций.
func NewExportHandler(ledgers *service.Ledgers) *ExportHandler {
	return &ExportHandler{Ledgers: ledgers}
}

// JSON выгружает транзакции в JSON-файл.
func (h *ExportHandler) JSON(c echo.Context) error {
	transactions, ledgerID, err := h.load(c)
	if err != nil || ledgerID == "" {
		return err
	}

	attachment(c, ledgerID, "json")
	return c.JSON(http.StatusOK, map[string][]models.Transaction{"transactions": transactions})
}

// CSV выгружает транзакции в CSV-файл.
func (h *ExportHandler) CSV(c echo.Context) error {
	transactions, ledgerID, err := h.load(c)
	if err != nil || ledgerID == "" {
		return err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		return serverError(c)
	}
	for _, tx := range transactions {
		if err := writer.Write(transactionRecord(tx)); err != nil {
			return serverError(c)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	attachment(c, ledgerID, "csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// XLSX выгружает транзакции в Excel с итоговой строкой.
func (h *ExportHandler) XLSX(c echo.Context) error {
	transactions, ledgerID, err := h.load(c)
	if err != nil || ledgerID == "" {
		return err
	}

	payload, err := buildWorkbook(transactions)
	if err != nil {
		slog.Error("failed to build workbook", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	attachment(c, ledgerID, "xlsx")
	return c.Blob(http.StatusOK, xlsxContentType, payload)
}

// load возвращает пустой ledgerID, если ответ уже отправлен.
func (h *ExportHandler) load(c echo.Context) ([]models.Transaction, string, error) {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return nil, "", unauthorized(c)
	}

	snapshot, err := h.Ledgers.Snapshot(c.Request().Context(), ledgerID)
	if err != nil {
		slog.Error("failed to load ledger for export", "ledger_id", ledgerID, "error", err)
		return nil, "", serverError(c)
	}

	return snapshot.Transactions, ledgerID, nil
}

func buildWorkbook(transactions []models.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"007AFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, title); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(exportSheet, "A1", "G1", headerStyle); err != nil {
		return nil, err
	}

	var total float64
	for i, tx := range transactions {
		row := i + 2
		values := []any{tx.ID, tx.Date, tx.Category, tx.Description, tx.Amount, tx.Currency, tx.BudgetID}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
		total += tx.Amount
	}

	summaryRow := len(transactions) + 2
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("D%d", summaryRow), "Total")
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("E%d", summaryRow), total)

	_ = f.SetColWidth(exportSheet, "A", "A", 38)
	_ = f.SetColWidth(exportSheet, "C", "D", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func transactionRecord(tx models.Transaction) []string {
	return []string{
		tx.ID,
		tx.Date,
		tx.Category,
		tx.Description,
		strconv.FormatFloat(tx.Amount, 'f', -1, 64),
		tx.Currency,
		tx.BudgetID,
	}
}

func attachment(c echo.Context, ledgerID, ext string) {
	filename := "freddy-" + ledgerID + "-transactions." + ext
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
}
