package notification

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/google/uuid"
)

// DocumentStore keeps rendered e-bills
type DocumentStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// PDFRenderer converts an HTML document to PDF
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// InvoiceRenderer renders the A4 e-bill HTML
type InvoiceRenderer interface {
	RenderInvoice(r *sales.Receipt) (string, error)
}

// ReceiptSource loads the printable view of an order without a caller
type ReceiptSource interface {
	LoadReceipt(ctx context.Context, tenantID, orderID uuid.UUID) (*sales.Receipt, error)
}

// SMSQuotaSource returns the monthly SMS allowance of a tenant's plan
type SMSQuotaSource interface {
	SMSQuota(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// DeliveryRecorder counts SMS delivery attempts
type DeliveryRecorder interface {
	RecordSMS(ctx context.Context, purpose, status string)
}
