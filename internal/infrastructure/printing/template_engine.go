package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	notificationapp "github.com/cloudpos/backend/internal/application/notification"
	salesapp "github.com/cloudpos/backend/internal/application/sales"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	invoiceTemplate = "ebill_a4.html"
	receiptTemplate = "receipt_80mm.html"
)

// TemplateEngine renders receipts and e-bills from the embedded templates
type TemplateEngine struct {
	printer *message.Printer
	lang    language.Tag
	tmpl    *template.Template
}

var (
	_ notificationapp.InvoiceRenderer = (*TemplateEngine)(nil)
	_ salesapp.ReceiptRenderer        = (*TemplateEngine)(nil)
)

// NewTemplateEngine parses the templates. lang drives digit grouping.
func NewTemplateEngine(lang language.Tag) (*TemplateEngine, error) {
	e := &TemplateEngine{
		printer: message.NewPrinter(lang),
		lang:    lang,
	}
	tmpl, err := template.New("printing").Funcs(e.funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse templates", err)
	}
	e.tmpl = tmpl
	return e, nil
}

func (e *TemplateEngine) funcMap() template.FuncMap {
	return template.FuncMap{
		"money":       e.formatMoney,
		"amount":      e.formatAmount,
		"qty":         e.formatQty,
		"dateTime":    formatDateTime,
		"date":        formatDate,
		"upper":       strings.ToUpper,
		"title":       func(s string) string { return cases.Title(e.lang).String(s) },
		"add1":        func(i int) int { return i + 1 },
		"truncate":    truncate,
		"displayName": sales.DisplayName,
		"positive":    func(d decimal.Decimal) bool { return d.IsPositive() },
		"percent":     func(d decimal.Decimal) string { return d.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%" },
	}
}

// RenderInvoice renders the A4 e-bill
func (e *TemplateEngine) RenderInvoice(r *sales.Receipt) (string, error) {
	return e.execute(invoiceTemplate, r)
}

// RenderReceipt renders the 80mm thermal receipt
func (e *TemplateEngine) RenderReceipt(r *sales.Receipt) (string, error) {
	return e.execute(receiptTemplate, r)
}

func (e *TemplateEngine) execute(name string, r *sales.Receipt) (string, error) {
	if r == nil || r.Order == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "receipt has no order", nil)
	}
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, r); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute "+name, err)
	}
	return buf.String(), nil
}

// formatMoney prefixes the ISO code: "LKR 1,250.00"
func (e *TemplateEngine) formatMoney(code valueobject.Currency, d decimal.Decimal) string {
	unit, err := currency.ParseISO(string(code))
	if err != nil {
		unit = currency.MustParseISO(string(valueobject.DefaultCurrency))
	}
	return unit.String() + " " + e.formatAmount(d)
}

// formatAmount groups digits and keeps two decimals
func (e *TemplateEngine) formatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return e.printer.Sprint(number.Decimal(f, number.Scale(2)))
}

// formatQty drops trailing zeros of the three-decimal quantity
func (e *TemplateEngine) formatQty(d decimal.Decimal) string {
	f, _ := d.Round(3).Float64()
	return e.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// RenderText renders a one-off template string, used for SMS bodies
func (e *TemplateEngine) RenderText(name, content string, data any) (string, error) {
	t, err := template.New(name).Funcs(e.funcMap()).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, fmt.Sprintf("failed to parse %s", name), err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, fmt.Sprintf("failed to execute %s", name), err)
	}
	return buf.String(), nil
}
