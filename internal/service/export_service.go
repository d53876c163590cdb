package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/dto"
	"github.com/noah-isme/academia-api/internal/models"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
	"github.com/noah-isme/academia-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Validation(appErrors.FieldError{Field: "format", Message: "must be csv or pdf"})
}

type paymentLister interface {
	History(ctx context.Context, filter models.PaymentHistoryFilter) (*dto.PaymentList, bool, error)
	Overdue(ctx context.Context) (*dto.PaymentList, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the payment history and overdue lists as files,
// in the same order as the listings and with the total as a footer.
type ExportService struct {
	payments paymentLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(payments paymentLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{payments: payments, csv: csv, pdf: pdf, logger: logger}
}

// History renders the filtered payment history.
func (s *ExportService) History(ctx context.Context, filter models.PaymentHistoryFilter, format ExportFormat) (*ExportFile, error) {
	list, _, err := s.payments.History(ctx, filter)
	if err != nil {
		return nil, err
	}
	title := "Payment history"
	if filter.From != nil || filter.To != nil {
		title = fmt.Sprintf("Payment history %s to %s", dateKey(filter.From), dateKey(filter.To))
	}
	name := fmt.Sprintf("payment_history_%s", list.AsOf.Format("20060102"))
	return s.render(list, name, title, format)
}

// Overdue renders the overdue payment list.
func (s *ExportService) Overdue(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	list, _, err := s.payments.Overdue(ctx)
	if err != nil {
		return nil, err
	}
	title := "Overdue payments as of " + list.AsOf.Format(models.DateLayout)
	name := fmt.Sprintf("overdue_payments_%s", list.AsOf.Format("20060102"))
	return s.render(list, name, title, format)
}

func (s *ExportService) render(list *dto.PaymentList, name, title string, format ExportFormat) (*ExportFile, error) {
	data := paymentDataset(list)

	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		body, err = s.pdf.Render(data, title)
		contentType = "application/pdf"
	default:
		format = ExportFormatCSV
		body, err = s.csv.Render(data)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		s.logger.Error("failed to render export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{Filename: name + "." + string(format), ContentType: contentType, Body: body}, nil
}

var paymentHeaders = []string{"Student", "Amount", "Payment date", "Due date", "Method", "Status", "Days overdue"}

func paymentDataset(list *dto.PaymentList) export.Dataset {
	rows := make([]map[string]string, 0, len(list.Items))
	for _, item := range list.Items {
		rows = append(rows, map[string]string{
			"Student":      item.StudentName,
			"Amount":       item.Amount.StringFixed(2),
			"Payment date": item.PaymentDate.Format(models.DateLayout),
			"Due date":     item.DueDate.Format(models.DateLayout),
			"Method":       string(item.Method),
			"Status":       string(item.Status),
			"Days overdue": strconv.Itoa(item.DaysOverdue),
		})
	}
	return export.Dataset{
		Headers: paymentHeaders,
		Rows:    rows,
		Footer:  map[string]string{"Student": "Total", "Amount": list.Total.StringFixed(2)},
	}
}
