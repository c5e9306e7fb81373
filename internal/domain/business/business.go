package business

import (
	"regexp"
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// EBillChannel is how e-bills reach the customer
type EBillChannel string

const (
	EBillChannelSMS   EBillChannel = "SMS"
	EBillChannelEmail EBillChannel = "EMAIL"
)

// IsValid checks the channel value
func (c EBillChannel) IsValid() bool {
	return c == EBillChannelSMS || c == EBillChannelEmail
}

const DefaultInvoicePrefix = "INV"

var (
	senderIDPattern      = regexp.MustCompile(`^[A-Za-z0-9 ]{3,11}$`)
	invoicePrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,6}$`)

	ErrCategoryInUse    = shared.NewDomainError("CATEGORY_IN_USE", "Category is used by products")
	ErrCategoryNotFound = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category does not exist")
	ErrCategoryExists   = shared.NewDomainError("CATEGORY_EXISTS", "Category already exists")
)

// Meta is the singleton settings row of a business (tenant)
type Meta struct {
	shared.TenantAggregateRoot
	BusinessName  string
	Currency      valueobject.Currency
	Phone         string
	Email         string
	Address       string
	LogoKey       string
	Categories    []string
	SMSEnabled    bool
	SMSSenderID   string
	EBillEnabled  bool
	EBillChannel  EBillChannel
	InvoicePrefix string
	ReceiptFooter string
	PlanCode      string
}

// NewMeta creates the settings row for a newly registered business.
// The aggregate ID equals the tenant ID.
func NewMeta(tenantID uuid.UUID, name, planCode string) (*Meta, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_BUSINESS_NAME", "Business name must be 1-200 characters")
	}
	m := &Meta{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BusinessName:        name,
		Currency:            valueobject.DefaultCurrency,
		Categories:          make([]string, 0),
		EBillChannel:        EBillChannelSMS,
		InvoicePrefix:       DefaultInvoicePrefix,
		PlanCode:            planCode,
	}
	m.ID = tenantID
	return m, nil
}

// Profile carries the editable profile fields
type Profile struct {
	BusinessName  string
	Currency      valueobject.Currency
	Phone         string
	Email         string
	Address       string
	LogoKey       string
	InvoicePrefix string
	ReceiptFooter string
}

// UpdateProfile applies profile edits
func (m *Meta) UpdateProfile(p Profile) error {
	name := strings.TrimSpace(p.BusinessName)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_BUSINESS_NAME", "Business name must be 1-200 characters")
	}
	currency := p.Currency
	if currency == "" {
		currency = m.Currency
	}
	if !currency.IsSupported() {
		return shared.NewDomainError("INVALID_CURRENCY", "Unsupported currency")
	}
	phone := p.Phone
	if phone != "" {
		normalized, err := valueobject.NormalizePhone(phone)
		if err != nil {
			return shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
		}
		phone = normalized
	}
	prefix := strings.ToUpper(strings.TrimSpace(p.InvoicePrefix))
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	if !invoicePrefixPattern.MatchString(prefix) {
		return shared.NewDomainError("INVALID_INVOICE_PREFIX", "Invoice prefix must be 1-6 uppercase letters or digits")
	}

	m.BusinessName = name
	m.Currency = currency
	m.Phone = phone
	m.Email = strings.ToLower(strings.TrimSpace(p.Email))
	m.Address = strings.TrimSpace(p.Address)
	m.LogoKey = p.LogoKey
	m.InvoicePrefix = prefix
	m.ReceiptFooter = p.ReceiptFooter
	m.Touch()
	m.IncrementVersion()
	return nil
}

// HasCategory matches case-insensitively
func (m *Meta) HasCategory(name string) bool {
	return m.categoryIndex(name) >= 0
}

func (m *Meta) categoryIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range m.Categories {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// AddCategory appends a category, keeping order
func (m *Meta) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY", "Category must be 1-100 characters")
	}
	if m.HasCategory(name) {
		return ErrCategoryExists
	}
	m.Categories = append(m.Categories, name)
	m.Touch()
	m.IncrementVersion()
	return nil
}

// RenameCategory renames in place. Products referencing the old name are
// updated by the caller in the same transaction.
func (m *Meta) RenameCategory(oldName, newName string) error {
	i := m.categoryIndex(oldName)
	if i < 0 {
		return ErrCategoryNotFound
	}
	newName = strings.TrimSpace(newName)
	if newName == "" || len(newName) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY", "Category must be 1-100 characters")
	}
	if j := m.categoryIndex(newName); j >= 0 && j != i {
		return ErrCategoryExists
	}
	m.Categories[i] = newName
	m.Touch()
	m.IncrementVersion()
	m.AddDomainEvent(NewCategoryRenamedEvent(m, oldName, newName))
	return nil
}

// RemoveCategory deletes a category; productCount is how many products use it
func (m *Meta) RemoveCategory(name string, productCount int64) error {
	i := m.categoryIndex(name)
	if i < 0 {
		return ErrCategoryNotFound
	}
	if productCount > 0 {
		return ErrCategoryInUse
	}
	m.Categories = append(m.Categories[:i], m.Categories[i+1:]...)
	m.Touch()
	m.IncrementVersion()
	return nil
}

// SetSMS toggles SMS sending and sets the sender mask
func (m *Meta) SetSMS(enabled bool, senderID string) error {
	senderID = strings.TrimSpace(senderID)
	if enabled && !senderIDPattern.MatchString(senderID) {
		return shared.NewDomainError("INVALID_SENDER_ID", "Sender ID must be 3-11 letters, digits or spaces")
	}
	m.SMSEnabled = enabled
	m.SMSSenderID = senderID
	m.Touch()
	m.IncrementVersion()
	return nil
}

// SetEBill toggles e-bills and selects the delivery channel
func (m *Meta) SetEBill(enabled bool, channel EBillChannel) error {
	if !channel.IsValid() {
		return shared.NewDomainError("INVALID_EBILL_CHANNEL", "E-bill channel must be SMS or EMAIL")
	}
	m.EBillEnabled = enabled
	m.EBillChannel = channel
	m.Touch()
	m.IncrementVersion()
	return nil
}

// SetPlan records the active subscription plan code
func (m *Meta) SetPlan(planCode string) {
	m.PlanCode = planCode
	m.Touch()
	m.IncrementVersion()
}
