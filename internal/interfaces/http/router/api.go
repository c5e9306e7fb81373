package router

import (
	"net/http"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/cloudpos/backend/internal/interfaces/http/handler"
	"github.com/cloudpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers mounted by NewEngine
type Handlers struct {
	Auth            *handler.AuthHandler
	User            *handler.UserHandler
	Role            *handler.RoleHandler
	Branch          *handler.BranchHandler
	Business        *handler.BusinessHandler
	Product         *handler.ProductHandler
	Inventory       *handler.InventoryHandler
	Sales           *handler.SalesHandler
	Customer        *handler.CustomerHandler
	Finance         *handler.FinanceHandler
	Notification    *handler.NotificationHandler
	Billing         *handler.BillingHandler
	Report          *handler.ReportHandler
	PaymentCallback *handler.PaymentCallbackHandler
	System          *handler.SystemHandler
}

// Options configures the middleware stack. Nil stores disable the
// middleware that needs them.
type Options struct {
	HTTP           config.HTTPConfig
	Swagger        config.SwaggerConfig
	RequestTimeout time.Duration
	// ServiceName enables otelgin tracing when set
	ServiceName    string
	JWT            middleware.JWTMiddlewareConfig
	RateLimiter    middleware.Limiter
	WriteGate      middleware.WriteGate
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// Paths that stay writable while the subscription is lapsed
var subscriptionExempt = []string{
	"/api/v1/billing",
	"/api/v1/auth/logout",
	"/api/v1/auth/password",
}

// NewEngine builds the gin engine with the full middleware stack and every
// API route. Order matters: the request id comes first so every later log
// line carries it, and JWTAuth runs before the rate limiter, the
// subscription guard and idempotency, which all key on the principal.
func NewEngine(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if opts.ServiceName != "" {
		engine.Use(otelgin.Middleware(opts.ServiceName))
	}
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(opts.HTTP)))
	engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(opts.RequestTimeout))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", c.GetString(logger.GinRequestIDKey)))
	})

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/api/v1/health", h.System.Health)
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(opts.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateways call these directly; they carry no bearer token
	if h.PaymentCallback != nil {
		callbacks := engine.Group("/api/v1/payment/callback")
		callbacks.POST("/payhere", h.PaymentCallback.HandlePayHereCallback)
		callbacks.POST("/onepay", h.PaymentCallback.HandleOnePayCallback)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(opts.JWT))
	if opts.RateLimiter != nil {
		r.Use(middleware.RateLimit(opts.RateLimiter))
	}
	if opts.WriteGate != nil {
		r.Use(middleware.SubscriptionGuard(opts.WriteGate, subscriptionExempt...))
	}
	if opts.Idempotency != nil {
		r.Use(middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL))
	}

	for _, g := range APIGroups(h) {
		r.Register(g)
	}
	r.Setup()
	return engine
}

// APIGroups returns the domain route groups for the handlers that are set
func APIGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup
	add := func(g *DomainGroup) { groups = append(groups, g) }

	if h.Auth != nil {
		add(authRoutes(h.Auth))
	}
	if h.User != nil || h.Role != nil {
		add(identityRoutes(h.User, h.Role))
	}
	if h.Branch != nil {
		add(branchRoutes(h.Branch))
	}
	if h.Business != nil {
		add(businessRoutes(h.Business))
	}
	if h.Product != nil {
		add(catalogRoutes(h.Product))
	}
	if h.Inventory != nil {
		add(inventoryRoutes(h.Inventory))
	}
	if h.Sales != nil {
		add(salesRoutes(h.Sales))
	}
	if h.Customer != nil {
		add(customerRoutes(h.Customer))
	}
	if h.Finance != nil {
		add(financeRoutes(h.Finance))
	}
	if h.Notification != nil {
		add(notificationRoutes(h.Notification))
	}
	if h.Billing != nil {
		add(billingRoutes(h.Billing))
	}
	if h.Report != nil {
		add(reportRoutes(h.Report))
	}
	if h.System != nil {
		g := NewDomainGroup("system", "/system")
		g.GET("/info", h.System.GetSystemInfo)
		g.GET("/ping", h.System.Ping)
		add(g)
	}
	return groups
}

var (
	branchParam = middleware.BranchFromParam("branch_id")
	branchQuery = middleware.BranchFromQuery("branch_id")
	branchBody  = middleware.BranchFromBody("branch_id")
)

func authRoutes(h *handler.AuthHandler) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.RefreshToken)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.GetCurrentUser)
	g.PUT("/password", h.ChangePassword)
	return g
}

// Staff management checks branch scope in the service: a manager may only
// manage users of their own branch.
func identityRoutes(users *handler.UserHandler, roles *handler.RoleHandler) *DomainGroup {
	g := NewDomainGroup("identity", "/identity")

	if users != nil {
		g.POST("/users", users.Create)
		g.GET("/users", users.List)
		g.GET("/users/:id", users.Get)
		g.PUT("/users/:id", users.Update)
		g.DELETE("/users/:id", users.Delete)
		g.PUT("/users/:id/roles", users.AssignRoles)
		g.PUT("/users/:id/branch", users.AssignBranch)
		g.POST("/users/:id/activate", users.Activate)
		g.POST("/users/:id/deactivate", users.Deactivate)
		g.POST("/users/:id/unlock", users.Unlock)
		g.POST("/users/:id/reset-password", users.ResetPassword)
	}

	if roles != nil {
		view := middleware.RequirePermission("view:role")
		manage := middleware.RequirePermission("manage:role")
		g.GET("/permissions", view, roles.ListPermissions)
		g.GET("/roles", view, roles.List)
		g.GET("/roles/:id", view, roles.Get)
		g.POST("/roles", manage, roles.Create)
		g.PUT("/roles/:id", manage, roles.Update)
		g.PUT("/roles/:id/permissions", manage, roles.SetPermissions)
		g.POST("/roles/:id/enable", manage, roles.Enable)
		g.POST("/roles/:id/disable", manage, roles.Disable)
		g.DELETE("/roles/:id", manage, roles.Delete)
	}
	return g
}

func branchRoutes(h *handler.BranchHandler) *DomainGroup {
	g := NewDomainGroup("branch", "/branches")
	manage := middleware.RequirePermission("manage:branch")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", manage, h.Create)
	g.PUT("/:id", manage, h.Update)
	g.POST("/:id/activate", manage, h.Activate)
	g.POST("/:id/deactivate", manage, h.Deactivate)
	return g
}

func businessRoutes(h *handler.BusinessHandler) *DomainGroup {
	g := NewDomainGroup("business", "/business")
	edit := middleware.RequirePermission("edit:business")
	categories := middleware.RequirePermission("edit:product")
	g.GET("", h.Get)
	g.PUT("", edit, h.Update)
	g.POST("/categories", categories, h.AddCategory)
	g.PUT("/categories", categories, h.RenameCategory)
	g.DELETE("/categories", categories, h.RemoveCategory)
	g.PUT("/sms", edit, h.SetSMS)
	g.PUT("/ebill", edit, h.SetEBill)
	return g
}

func catalogRoutes(h *handler.ProductHandler) *DomainGroup {
	g := NewDomainGroup("catalog", "/catalog")
	view := middleware.RequirePermission("view:product")
	edit := middleware.RequirePermission("edit:product")

	g.GET("/search", view, h.Search)

	products := g.Group("products", "/products")
	products.GET("", view, h.List)
	products.GET("/sync", view, h.Sync)
	products.GET("/barcode/:code", view, h.FindByBarcode)
	products.GET("/sku/:sku", view, h.FindBySKU)
	products.GET("/:id", view, h.Get)
	products.POST("", middleware.RequirePermission("create:product"), h.Create)
	products.PUT("/:id", edit, h.Update)
	products.POST("/:id/activate", edit, h.Activate)
	products.POST("/:id/deactivate", edit, h.Deactivate)
	products.POST("/:id/variants", edit, h.AddVariant)
	products.PUT("/:id/variants/:variant_id", edit, h.UpdateVariant)
	products.PUT("/:id/variants/:variant_id/tiers", edit, h.SetPriceTiers)
	products.DELETE("/:id/variants/:variant_id", edit, h.RemoveVariant)
	products.POST("/:id/image/upload-url", edit, h.RequestImageUpload)
	products.PUT("/:id/image", edit, h.ConfirmImage)
	return g
}

// Stock routes name their branch in the path, query or body, so branch-only
// grants are checked against it before the handler runs.
func inventoryRoutes(h *handler.InventoryHandler) *DomainGroup {
	g := NewDomainGroup("inventory", "/inventory")
	g.GET("/stock", middleware.RequireBranchPermission("view:stock", branchQuery), h.ListStock)
	g.GET("/stock/low", middleware.RequireBranchPermission("view:stock", branchQuery), h.LowStock)
	g.GET("/stock/:branch_id/:variant_id", middleware.RequireBranchPermission("view:stock", branchParam), h.GetStock)
	g.GET("/movements", middleware.RequireBranchPermission("view:stock", branchQuery), h.Movements)
	g.POST("/stock/adjust", middleware.RequireBranchPermission("edit:stock", branchBody), h.Adjust)
	g.PUT("/stock/reorder-level", middleware.RequireBranchPermission("edit:stock", branchBody), h.SetReorderLevel)
	g.POST("/stock/transfer",
		middleware.RequireBranchPermission("transfer:stock", middleware.BranchFromBody("from_branch_id")),
		h.Transfer)
	return g
}

func salesRoutes(h *handler.SalesHandler) *DomainGroup {
	g := NewDomainGroup("sales", "/sales")
	orders := g.Group("orders", "/orders")
	orders.POST("", middleware.RequireBranchPermission("create:order", branchBody), h.Checkout)
	orders.GET("", h.List)
	orders.GET("/invoice/:number", h.GetByInvoiceNumber)
	orders.GET("/:id", h.Get)
	orders.GET("/:id/receipt", h.Receipt)
	orders.GET("/:id/payments", h.Payments)
	orders.POST("/:id/void", h.Void)
	orders.POST("/:id/retry-payment", h.RetryPayment)
	orders.POST("/:id/ebill", h.SendEBill)
	return g
}

func customerRoutes(h *handler.CustomerHandler) *DomainGroup {
	g := NewDomainGroup("customer", "/customers")
	view := middleware.RequirePermission("view:customer")
	g.GET("", view, h.List)
	g.GET("/phone/:phone", view, h.FindByPhone)
	g.GET("/:id", view, h.Get)
	g.POST("", middleware.RequirePermission("create:customer"), h.Create)
	g.PUT("/:id", middleware.RequirePermission("edit:customer"), h.Update)
	g.POST("/:id/credit", middleware.RequirePermission("edit:customer"), h.AdjustCredit)
	g.DELETE("/:id", middleware.RequirePermission("delete:customer"), h.Delete)
	return g
}

func financeRoutes(h *handler.FinanceHandler) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")

	expenses := g.Group("expenses", "/expenses")
	expenses.GET("", h.ListExpenses)
	expenses.GET("/:id", h.GetExpense)
	expenses.POST("", middleware.RequireBranchPermission("create:expense", branchBody), h.CreateExpense)
	expenses.PUT("/:id", h.UpdateExpense)
	expenses.POST("/:id/cancel", h.CancelExpense)

	incomes := g.Group("incomes", "/incomes")
	incomes.GET("", h.ListIncomes)
	incomes.GET("/:id", h.GetIncome)
	incomes.POST("", middleware.RequireBranchPermission("create:income", branchBody), h.CreateIncome)
	incomes.PUT("/:id", h.UpdateIncome)
	incomes.POST("/:id/cancel", h.CancelIncome)

	g.GET("/summary", middleware.RequireBranchPermission("view:report", branchQuery), h.Summary)
	return g
}

func notificationRoutes(h *handler.NotificationHandler) *DomainGroup {
	g := NewDomainGroup("notification", "/notifications")
	view := middleware.RequirePermission("view:sms")
	g.POST("/sms", middleware.RequirePermission("manage:sms"), h.SendSMS)
	g.GET("/sms", view, h.ListSMS)
	g.GET("/sms/usage", view, h.SMSUsage)
	return g
}

func billingRoutes(h *handler.BillingHandler) *DomainGroup {
	g := NewDomainGroup("billing", "/billing")
	view := middleware.RequirePermission("view:billing")
	manage := middleware.RequirePermission("manage:billing")
	g.GET("/plans", h.ListPlans)
	g.GET("/subscription", view, h.GetSubscription)
	g.GET("/quote", view, h.Quote)
	g.GET("/invoices", view, h.ListInvoices)
	g.GET("/invoices/:id/payments", view, h.InvoicePayments)
	g.POST("/change-plan", manage, h.ChangePlan)
	g.POST("/invoices/:id/checkout", manage, h.Checkout)
	g.POST("/cancel", manage, h.Cancel)
	return g
}

func reportRoutes(h *handler.ReportHandler) *DomainGroup {
	g := NewDomainGroup("report", "/reports")
	view := middleware.RequireBranchPermission("view:report", branchQuery)
	g.GET("/daily-sales", view, h.DailySales)
	g.GET("/top-products", view, h.TopProducts)
	g.GET("/stock-value", view, h.StockValue)
	return g
}
