package customer

import (
	"context"
	"strings"

	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PermViewCustomer   = "view:customer"
	PermCreateCustomer = "create:customer"
	PermEditCustomer   = "edit:customer"
	PermDeleteCustomer = "delete:customer"
)

// ErrPhoneTaken is returned when another customer already uses the phone number
var ErrPhoneTaken = shared.NewDomainError("CUSTOMER_PHONE_EXISTS", "Customer with this phone already exists")

// Options carries the loyalty and credit settings
type Options struct {
	// PointsPer is the spend that earns one loyalty point; zero disables loyalty
	PointsPer   decimal.Decimal
	CreditLimit decimal.Decimal
}

// CustomerService manages shoppers, their loyalty points and store credit
type CustomerService struct {
	repo   customer.Repository
	tx     shared.TxManager
	opts   Options
	logger *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(repo customer.Repository, tx shared.TxManager, opts Options, logger *zap.Logger) *CustomerService {
	return &CustomerService{repo: repo, tx: tx, opts: opts, logger: logger}
}

// Customers belong to the tenant, so a branch-only grant is enough
func authorize(p *identity.Principal, perm string) error {
	if !p.CanInSomeBranch(perm) {
		return shared.ErrForbidden
	}
	return nil
}

// Create registers a customer; the phone number must be unique in the tenant
func (s *CustomerService) Create(ctx context.Context, p *identity.Principal, req CreateCustomerRequest) (*CustomerResponse, error) {
	if err := authorize(p, PermCreateCustomer); err != nil {
		return nil, err
	}
	c, err := customer.NewCustomer(p.TenantID, customer.Details{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkPhone(ctx, p.TenantID, c.Phone, uuid.Nil); err != nil {
		return nil, err
	}
	c.SetCreatedBy(p.UserID)
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", zap.String("customer_id", c.ID.String()))
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Get returns one customer
func (s *CustomerService) Get(ctx context.Context, p *identity.Principal, id uuid.UUID) (*CustomerResponse, error) {
	if err := authorize(p, PermViewCustomer); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// FindByPhone looks a customer up at the till; any accepted phone format works
func (s *CustomerService) FindByPhone(ctx context.Context, p *identity.Principal, phone string) (*CustomerResponse, error) {
	if err := authorize(p, PermViewCustomer); err != nil {
		return nil, err
	}
	normalized, err := valueobject.NormalizePhone(phone)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
	}
	c, err := s.repo.FindByPhone(ctx, p.TenantID, normalized)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// List pages through customers; Search matches name, phone or email
func (s *CustomerService) List(ctx context.Context, p *identity.Principal, f CustomerListFilter) (shared.Paginated[CustomerResponse], error) {
	if err := authorize(p, PermViewCustomer); err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
		Search:   strings.TrimSpace(f.Search),
		Filters:  make(map[string]any),
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}
	if f.Active != nil {
		filter.Filters["is_active"] = *f.Active
	}
	filter.Normalize()

	customers, total, err := s.repo.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}
	items := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		items[i] = ToCustomerResponse(c)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update edits the customer's details
func (s *CustomerService) Update(ctx context.Context, p *identity.Principal, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	if err := authorize(p, PermEditCustomer); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}

	details := customer.Details{Name: c.Name, Phone: c.Phone, Email: c.Email, Address: c.Address, Notes: c.Notes}
	if req.Name != nil {
		details.Name = *req.Name
	}
	if req.Phone != nil {
		details.Phone = *req.Phone
	}
	if req.Email != nil {
		details.Email = *req.Email
	}
	if req.Address != nil {
		details.Address = *req.Address
	}
	if req.Notes != nil {
		details.Notes = *req.Notes
	}
	previousPhone := c.Phone
	if err := c.Update(details); err != nil {
		return nil, err
	}
	if c.Phone != previousPhone {
		if err := s.checkPhone(ctx, p.TenantID, c.Phone, c.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Deactivate hides the customer; order history keeps referring to it
func (s *CustomerService) Deactivate(ctx context.Context, p *identity.Principal, id uuid.UUID) error {
	if err := authorize(p, PermDeleteCustomer); err != nil {
		return err
	}
	c, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return err
	}
	if err := c.Deactivate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return err
	}
	s.logger.Info("Customer deactivated",
		zap.String("customer_id", id.String()),
		zap.String("by", p.UserID.String()))
	return nil
}

// AdjustCredit records a repayment or a manual charge against store credit
func (s *CustomerService) AdjustCredit(ctx context.Context, p *identity.Principal, id uuid.UUID, req AdjustCreditRequest) (*CustomerResponse, error) {
	if err := authorize(p, PermEditCustomer); err != nil {
		return nil, err
	}
	var c *customer.Customer
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.repo.FindByIDForUpdate(ctx, p.TenantID, id); err != nil {
			return err
		}
		if err := c.AdjustCredit(req.Amount, s.opts.CreditLimit); err != nil {
			return err
		}
		return s.repo.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer credit adjusted",
		zap.String("customer_id", id.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("balance", c.CreditBalance.StringFixed(2)),
		zap.String("note", req.Note),
		zap.String("by", p.UserID.String()))
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// ChargeCredit consumes store credit for a CREDIT tender. It runs inside the
// checkout transaction.
func (s *CustomerService) ChargeCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error {
	c, err := s.repo.FindByIDForUpdate(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return shared.NewDomainError("CUSTOMER_INACTIVE", "Customer is inactive")
	}
	if err := c.AdjustCredit(amount.Neg(), s.opts.CreditLimit); err != nil {
		return err
	}
	return s.repo.Save(ctx, c)
}

// RefundCredit gives back credit consumed by a voided order
func (s *CustomerService) RefundCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error {
	c, err := s.repo.FindByIDForUpdate(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if err := c.AdjustCredit(amount, s.opts.CreditLimit); err != nil {
		return err
	}
	return s.repo.Save(ctx, c)
}

func (s *CustomerService) checkPhone(ctx context.Context, tenantID uuid.UUID, phone string, exclude uuid.UUID) error {
	exists, err := s.repo.ExistsByPhone(ctx, tenantID, phone, exclude)
	if err != nil {
		return err
	}
	if exists {
		return ErrPhoneTaken
	}
	return nil
}
