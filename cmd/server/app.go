package main

import (
	"context"
	"fmt"
	"time"

	billingapp "github.com/cloudpos/backend/internal/application/billing"
	branchapp "github.com/cloudpos/backend/internal/application/branch"
	businessapp "github.com/cloudpos/backend/internal/application/business"
	catalogapp "github.com/cloudpos/backend/internal/application/catalog"
	customerapp "github.com/cloudpos/backend/internal/application/customer"
	financeapp "github.com/cloudpos/backend/internal/application/finance"
	identityapp "github.com/cloudpos/backend/internal/application/identity"
	inventoryapp "github.com/cloudpos/backend/internal/application/inventory"
	notificationapp "github.com/cloudpos/backend/internal/application/notification"
	reportapp "github.com/cloudpos/backend/internal/application/report"
	salesapp "github.com/cloudpos/backend/internal/application/sales"
	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/email"
	"github.com/cloudpos/backend/internal/infrastructure/event"
	"github.com/cloudpos/backend/internal/infrastructure/payment"
	"github.com/cloudpos/backend/internal/infrastructure/persistence"
	"github.com/cloudpos/backend/internal/infrastructure/printing"
	"github.com/cloudpos/backend/internal/infrastructure/scheduler"
	"github.com/cloudpos/backend/internal/infrastructure/search"
	"github.com/cloudpos/backend/internal/infrastructure/sms"
	"github.com/cloudpos/backend/internal/infrastructure/storage"
	"github.com/cloudpos/backend/internal/infrastructure/telemetry"
	"github.com/cloudpos/backend/internal/interfaces/http/handler"
	"github.com/cloudpos/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// eBillLinkExpiry is how long the presigned e-bill link in an SMS stays valid
const eBillLinkExpiry = 7 * 24 * time.Hour

// objectStore is what both the catalog images and e-bill PDFs need
type objectStore interface {
	catalogapp.ObjectStorageService
	notificationapp.DocumentStore
}

// application holds the wired services and the resources main must release
type application struct {
	handlers  router.Handlers
	quota     *billingapp.QuotaService
	scheduler *scheduler.Scheduler
	closers   []func() error
}

// close releases resources in reverse order of acquisition
func (a *application) close(log *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("Error releasing resource", zap.Error(err))
		}
	}
}

type dependencies struct {
	cfg         *config.Config
	log         *zap.Logger
	db          *persistence.Database
	redis       redis.UniversalClient
	bus         *event.InMemoryEventBus
	idempotency shared.IdempotencyStore
	jwt         *auth.JWTService
	blacklist   auth.TokenBlacklist
	metrics     *telemetry.POSMetrics
}

func buildApplication(ctx context.Context, d dependencies) (*application, error) {
	cfg, log := d.cfg, d.log
	app := &application{}
	loc := cfg.App.Location()
	db := d.db.DB

	// Repositories
	userRepo := persistence.NewGormUserRepository(db)
	roleRepo := persistence.NewGormRoleRepository(db)
	branchRepo := persistence.NewGormBranchRepository(db)
	businessRepo := persistence.NewGormBusinessRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	inventoryRepo := persistence.NewGormInventoryRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	customerRepo := persistence.NewGormCustomerRepository(db)
	entryRepo := persistence.NewGormEntryRepository(db)
	reportRepo := persistence.NewGormReportRepository(db)
	smsRepo := persistence.NewGormSMSRepository(db)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	paymentTxnRepo := persistence.NewGormPaymentTransactionRepository(db)
	tx := persistence.NewGormTxManager(db)

	// Outbound adapters
	objects, err := newObjectStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var productIndex catalog.SearchIndex
	if cfg.Search.Enabled {
		productIndex = search.NewMeiliIndex(cfg.Search.URL, cfg.Search.APIKey, cfg.Search.Index, log)
		log.Info("Product search enabled", zap.String("index", cfg.Search.Index))
	}

	smsSender, err := sms.New(&cfg.SMS, log)
	if err != nil {
		return nil, fmt.Errorf("sms sender: %w", err)
	}

	var emailSender notification.EmailSender
	if cfg.Email.Enabled {
		sg, err := email.NewSendGridSender(&cfg.Email, "", log)
		if err != nil {
			return nil, fmt.Errorf("email sender: %w", err)
		}
		emailSender = sg
	}

	templates, err := printing.NewTemplateEngine(language.English)
	if err != nil {
		return nil, fmt.Errorf("receipt templates: %w", err)
	}

	registry, err := payment.NewRegistryFromConfig(&cfg.Payment, log)
	if err != nil {
		return nil, fmt.Errorf("payment gateways: %w", err)
	}

	// Billing and identity
	plans := billing.NewPlanCatalog(plansFromConfig(cfg.Billing.Plans, log))
	quotaService := billingapp.NewQuotaService(subscriptionRepo, plans, branchRepo, userRepo, log)
	app.quota = quotaService

	roleService := identityapp.NewRoleService(roleRepo, userRepo, log)
	authService := identityapp.NewAuthService(userRepo, roleRepo, d.jwt, d.blacklist, log)
	userService := identityapp.NewUserService(userRepo, roleRepo, branchRepo, quotaService, d.blacklist, d.jwt, log)

	paymentService := financeapp.NewPaymentService(registry, paymentTxnRepo, financeapp.PaymentURLs{
		BaseURL:   cfg.App.BaseURL,
		ReturnURL: cfg.Payment.ReturnURL,
		CancelURL: cfg.Payment.CancelURL,
	}, log)

	subscriptionService := billingapp.NewSubscriptionService(billingapp.SubscriptionServiceDeps{
		Subscriptions: subscriptionRepo,
		Invoices:      invoiceRepo,
		Plans:         plans,
		Businesses:    businessRepo,
		Quota:         quotaService,
		Payments:      paymentService,
		Tx:            tx,
		Publisher:     d.bus,
	}, billingapp.Options{
		GraceDays:   cfg.Billing.GraceDays,
		RenewalLead: cfg.Billing.RenewalLead,
	}, log)

	registrationService := businessapp.NewRegistrationService(
		tx, businessRepo, userRepo, branchRepo, subscriptionRepo, roleService, plans,
		businessapp.RegistrationConfig{TrialDays: cfg.Billing.TrialDays, DefaultPlan: cfg.Billing.DefaultPlan},
		d.bus, log,
	)

	// Tenant domains
	businessService := businessapp.NewBusinessService(businessRepo, productRepo, tx, d.bus, log)
	branchService := branchapp.NewBranchService(branchRepo, orderRepo, quotaService, d.bus, log)
	productService := catalogapp.NewProductService(productRepo, businessRepo, productIndex, objects, d.bus,
		catalogapp.ImageConfig{
			UploadExpiry:   cfg.Storage.PresignExpiration,
			DownloadExpiry: cfg.Storage.PresignExpiration,
		}, log)
	inventoryService := inventoryapp.NewInventoryService(inventoryRepo, branchRepo, productRepo, tx, d.bus,
		inventoryapp.Options{AllowNegativeStock: cfg.Sales.AllowNegativeStock}, log)

	pointsPer := decimal.NewFromFloat(cfg.Sales.LoyaltyPointsPer)
	customerService := customerapp.NewCustomerService(customerRepo, tx, customerapp.Options{
		PointsPer:   pointsPer,
		CreditLimit: decimal.NewFromFloat(cfg.Sales.CreditLimit),
	}, log)

	salesService := salesapp.NewSalesService(salesapp.SalesServiceDeps{
		Orders:     orderRepo,
		Branches:   branchRepo,
		Businesses: businessRepo,
		Products:   productRepo,
		Customers:  customerRepo,
		Users:      userRepo,
		Stock:      inventoryService,
		Credit:     customerService,
		Payments:   paymentService,
		Renderer:   templates,
		Tx:         tx,
		Publisher:  d.bus,
	}, salesapp.Options{
		TaxRate:        decimal.NewFromFloat(cfg.Sales.TaxRate),
		Location:       loc,
		PendingTimeout: cfg.Sales.PendingOrderTimeout,
	}, log)

	entryService := financeapp.NewEntryService(entryRepo, branchRepo, reportRepo, loc, log)
	reportService := reportapp.NewReportService(reportRepo, loc, log)

	var callbackMetrics financeapp.CallbackRecorder
	if d.metrics != nil {
		callbackMetrics = d.metrics
	}
	callbackService := financeapp.NewPaymentCallbackService(financeapp.PaymentCallbackServiceConfig{
		Registry:       registry,
		Transactions:   paymentTxnRepo,
		Idempotency:    d.idempotency,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Tx:             tx,
		Metrics:        callbackMetrics,
		Logger:         log,
	})
	callbackService.RegisterSettler(finance.PaymentPurposeOrder, salesService)
	callbackService.RegisterSettler(finance.PaymentPurposeSubscription, subscriptionService)

	smsOpts := notificationapp.SMSOptions{
		InlineAttempts: 2,
		Backoff:        500 * time.Millisecond,
		Location:       loc,
	}
	if d.metrics != nil {
		smsOpts.Metrics = d.metrics
	}
	smsService := notificationapp.NewSMSService(smsRepo, smsSender, businessRepo, quotaService, smsOpts, log)

	var ebillService *notificationapp.EBillService
	if cfg.Printing.Enabled {
		pdf := printing.NewChromedpRenderer(printing.ChromedpConfig{
			RemoteURL:      cfg.Printing.ChromeURL,
			DefaultTimeout: cfg.Printing.RenderTimeout,
			NoSandbox:      true,
			Logger:         log,
		})
		app.closers = append(app.closers, pdf.Close)
		ebillService = notificationapp.NewEBillService(notificationapp.EBillServiceDeps{
			Receipts:   salesService,
			Businesses: businessRepo,
			Invoices:   templates,
			PDF:        pdf,
			Documents:  objects,
			SMS:        smsService,
			Email:      emailSender,
		}, notificationapp.EBillOptions{LinkExpiry: eBillLinkExpiry}, log)
	} else {
		log.Info("PDF rendering disabled, e-bills are off")
	}

	// Event handlers. Handlers with side effects outside the database run
	// behind the idempotency store so a redelivered event is not sent twice.
	subscribe := func(h shared.EventHandler, dedupe bool) {
		if dedupe {
			h = event.NewIdempotentHandler(h, d.idempotency, log)
		}
		d.bus.Subscribe(h)
		log.Debug("Event handler registered", zap.Strings("events", h.EventTypes()))
	}
	subscribe(customerapp.NewPurchaseHandler(customerRepo, pointsPer, log), true)
	subscribe(notificationapp.NewStockAlertHandler(smsService, businessRepo, branchRepo, productRepo, log), true)
	if productIndex != nil {
		subscribe(catalogapp.NewSearchIndexHandler(productRepo, productIndex, log), false)
	}
	if ebillService != nil {
		subscribe(notificationapp.NewEBillHandler(ebillService, log), true)
	}
	if d.metrics != nil {
		subscribe(d.metrics, false)
	}

	// Background jobs
	sched := scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), scheduler.NewGormRunRecorder(db), log)
	for _, job := range []scheduler.Job{
		scheduler.BillingSweepJob(subscriptionService),
		scheduler.ExpirePendingOrdersJob(salesService),
		scheduler.RetryFailedSMSJob(smsService),
	} {
		if err := sched.Register(job); err != nil {
			return nil, err
		}
	}
	app.scheduler = sched

	checks := map[string]handler.Pinger{"database": d.db}
	if d.redis != nil {
		rdb := d.redis
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	app.handlers = router.Handlers{
		Auth:            handler.NewAuthHandler(authService, registrationService),
		User:            handler.NewUserHandler(userService),
		Role:            handler.NewRoleHandler(roleService),
		Branch:          handler.NewBranchHandler(branchService),
		Business:        handler.NewBusinessHandler(businessService),
		Product:         handler.NewProductHandler(productService),
		Inventory:       handler.NewInventoryHandler(inventoryService),
		Sales:           handler.NewSalesHandler(salesService, paymentService, ebillService),
		Customer:        handler.NewCustomerHandler(customerService),
		Finance:         handler.NewFinanceHandler(entryService),
		Notification:    handler.NewNotificationHandler(smsService),
		Billing:         handler.NewBillingHandler(subscriptionService, paymentService),
		Report:          handler.NewReportHandler(reportService),
		PaymentCallback: handler.NewPaymentCallbackHandler(callbackService),
		System:          handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, checks),
	}
	return app, nil
}

// newObjectStore returns S3 when storage is enabled. The in-memory store
// keeps development setups working without a bucket.
func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (objectStore, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, using in-memory store")
		return storage.NewMemoryObjectStorage(), nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("object storage bucket: %w", err)
	}
	log.Info("Object storage ready", zap.String("bucket", s3.Bucket()))
	return s3, nil
}

// plansFromConfig converts configured plans; invalid prices skip the plan
func plansFromConfig(in []config.PlanConfig, log *zap.Logger) []billing.Plan {
	plans := make([]billing.Plan, 0, len(in))
	for _, pc := range in {
		monthly, err1 := decimal.NewFromString(pc.MonthlyPrice)
		annual, err2 := decimal.NewFromString(pc.AnnualPrice)
		extra := decimal.Zero
		var err3 error
		if pc.ExtraBranchPrice != "" {
			extra, err3 = decimal.NewFromString(pc.ExtraBranchPrice)
		}
		if err1 != nil || err2 != nil || err3 != nil || pc.Code == "" {
			log.Warn("Skipping invalid plan", zap.String("code", pc.Code))
			continue
		}
		plans = append(plans, billing.Plan{
			Code:             pc.Code,
			Name:             pc.Name,
			MonthlyPrice:     monthly,
			AnnualPrice:      annual,
			MaxBranches:      pc.MaxBranches,
			MaxUsers:         pc.MaxUsers,
			SMSQuota:         pc.SMSQuota,
			ExtraBranchPrice: extra,
		})
	}
	return plans
}
