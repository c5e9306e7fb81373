package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEBillDisabled   = shared.NewDomainError("EBILL_DISABLED", "E-bills are not enabled for this business")
	ErrEBillNoContact  = shared.NewDomainError("EBILL_NO_CONTACT", "The customer has no phone or email for this channel")
	ErrEBillNotPrinted = shared.NewDomainError("EBILL_NOT_AVAILABLE", "Only completed orders have an e-bill")
)

// EBillKey is the object key of an e-bill PDF
func EBillKey(tenantID uuid.UUID, invoiceNumber string) string {
	return fmt.Sprintf("ebills/%s/%s.pdf", tenantID, invoiceNumber)
}

// EBillOptions tunes e-bill delivery
type EBillOptions struct {
	// LinkExpiry is the lifetime of the presigned link sent by SMS
	LinkExpiry time.Duration
}

// EBillServiceDeps groups the collaborators of EBillService
type EBillServiceDeps struct {
	Receipts   ReceiptSource
	Businesses business.Repository
	Invoices   InvoiceRenderer
	PDF        PDFRenderer
	Documents  DocumentStore
	SMS        *SMSService
	Email      notification.EmailSender
}

// EBillService renders invoices to PDF, stores them and sends the customer a
// link or attachment
type EBillService struct {
	deps   EBillServiceDeps
	opts   EBillOptions
	logger *zap.Logger
}

// NewEBillService creates a new EBillService
func NewEBillService(deps EBillServiceDeps, opts EBillOptions, logger *zap.Logger) *EBillService {
	if opts.LinkExpiry <= 0 {
		opts.LinkExpiry = 7 * 24 * time.Hour
	}
	return &EBillService{deps: deps, opts: opts, logger: logger}
}

// SendEBill resends the e-bill of a completed order
func (s *EBillService) SendEBill(ctx context.Context, p *identity.Principal, orderID uuid.UUID) (*EBillResponse, error) {
	r, err := s.deps.Receipts.LoadReceipt(ctx, p.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := p.Require("view:order", &r.Order.BranchID); err != nil {
		return nil, err
	}
	return s.deliver(ctx, r)
}

func (s *EBillService) deliver(ctx context.Context, r *sales.Receipt) (*EBillResponse, error) {
	order := r.Order
	if order.Status != sales.OrderStatusCompleted {
		return nil, ErrEBillNotPrinted
	}
	meta, err := s.deps.Businesses.Get(ctx, order.TenantID)
	if err != nil {
		return nil, err
	}
	if !meta.EBillEnabled {
		return nil, ErrEBillDisabled
	}

	resp := &EBillResponse{
		OrderID:       order.ID,
		InvoiceNumber: order.InvoiceNumber,
		Channel:       string(meta.EBillChannel),
		StorageKey:    EBillKey(order.TenantID, order.InvoiceNumber),
	}
	switch meta.EBillChannel {
	case business.EBillChannelEmail:
		resp.Recipient = r.CustomerEmail
	default:
		resp.Recipient = r.CustomerPhone
	}
	if resp.Recipient == "" {
		return nil, ErrEBillNoContact
	}

	pdf, err := s.render(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Documents.Upload(ctx, resp.StorageKey, pdf, "application/pdf"); err != nil {
		return nil, err
	}

	if meta.EBillChannel == business.EBillChannelEmail {
		if s.deps.Email == nil {
			return nil, shared.NewDomainError("EMAIL_DISABLED", "Email delivery is not configured")
		}
		err = s.deps.Email.Send(ctx, notification.Email{
			To:        r.CustomerEmail,
			ToName:    r.CustomerName,
			Subject:   fmt.Sprintf("%s invoice %s", meta.BusinessName, order.InvoiceNumber),
			PlainText: fmt.Sprintf("Thank you for shopping at %s. Your invoice %s is attached.", meta.BusinessName, order.InvoiceNumber),
			Attachments: []notification.Attachment{{
				Filename:    order.InvoiceNumber + ".pdf",
				ContentType: "application/pdf",
				Content:     pdf,
			}},
		})
		if err != nil {
			return nil, err
		}
	} else {
		url, _, err := s.deps.Documents.GenerateDownloadURL(ctx, resp.StorageKey, s.opts.LinkExpiry)
		if err != nil {
			return nil, err
		}
		resp.URL = url
		body := fmt.Sprintf("%s: thank you! Invoice %s %s %s. View: %s",
			meta.BusinessName, order.InvoiceNumber, r.Currency, order.GrandTotal.StringFixed(2), url)
		if _, err := s.deps.SMS.Send(ctx, order.TenantID, r.CustomerPhone, body, notification.PurposeEBill); err != nil {
			return nil, err
		}
	}

	s.logger.Info("E-bill sent",
		zap.String("order_id", order.ID.String()),
		zap.String("invoice_number", order.InvoiceNumber),
		zap.String("channel", resp.Channel))
	return resp, nil
}

func (s *EBillService) render(ctx context.Context, r *sales.Receipt) ([]byte, error) {
	html, err := s.deps.Invoices.RenderInvoice(r)
	if err != nil {
		return nil, err
	}
	return s.deps.PDF.RenderPDF(ctx, html)
}

// EBillHandler sends e-bills when orders complete
type EBillHandler struct {
	svc    *EBillService
	logger *zap.Logger
}

// NewEBillHandler creates a new EBillHandler
func NewEBillHandler(svc *EBillService, logger *zap.Logger) *EBillHandler {
	return &EBillHandler{svc: svc, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *EBillHandler) EventTypes() []string {
	return []string{sales.EventTypeOrderCompleted}
}

// Handle delivers the e-bill of a completed order with a customer. Skips and
// delivery failures are logged; the sale itself is never affected.
func (h *EBillHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*sales.OrderCompletedEvent)
	if !ok || e.CustomerID == nil {
		return nil
	}
	r, err := h.svc.deps.Receipts.LoadReceipt(ctx, e.TenantID(), e.AggregateID())
	if err != nil {
		return err
	}
	_, err = h.svc.deliver(ctx, r)
	switch {
	case err == nil:
	case errors.Is(err, ErrEBillDisabled), errors.Is(err, ErrEBillNoContact):
	case errors.Is(err, ErrSMSDisabled), errors.Is(err, notification.ErrQuotaExhausted):
		h.logger.Info("E-bill SMS skipped",
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("reason", err.Error()))
	default:
		h.logger.Warn("E-bill delivery failed",
			zap.String("invoice_number", e.InvoiceNumber),
			zap.Error(err))
	}
	return nil
}
