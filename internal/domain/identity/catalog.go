package identity

// System role codes
const (
	RoleOwner       = "owner"
	RoleManager     = "manager"
	RoleCashier     = "cashier"
	RoleStockKeeper = "stock_keeper"
	RoleAccountant  = "accountant"
)

// RolePermissions is the built-in role table seeded for every new business
var RolePermissions = map[string][]string{
	RoleOwner: {"*"},
	RoleManager: {
		"view:*",
		"create:*:branch-only",
		"edit:*:branch-only",
		"delete:*:branch-only",
		"manage:staff:branch-only",
	},
	RoleCashier: {
		"create:order:branch-only",
		"view:order:branch-only",
		"void:order:branch-only",
		"view:product",
		"view:customer",
		"create:customer",
		"view:stock:branch-only",
	},
	RoleStockKeeper: {
		"view:product",
		"edit:product",
		"view:stock:branch-only",
		"edit:stock:branch-only",
		"transfer:stock:branch-only",
	},
	RoleAccountant: {
		"view:*",
		"create:expense",
		"edit:expense",
		"create:income",
		"edit:income",
		"view:report",
	},
}

// SystemRoleNames maps system role codes to display names
var SystemRoleNames = map[string]string{
	RoleOwner:       "Owner",
	RoleManager:     "Branch Manager",
	RoleCashier:     "Cashier",
	RoleStockKeeper: "Stock Keeper",
	RoleAccountant:  "Accountant",
}

// SystemRoleOrder is the seeding order of the built-in roles
var SystemRoleOrder = []string{RoleOwner, RoleManager, RoleCashier, RoleStockKeeper, RoleAccountant}

// PermissionActions is the known action vocabulary
var PermissionActions = []string{"view", "create", "edit", "delete", "void", "transfer", "manage"}

// PermissionResources is the known resource vocabulary
var PermissionResources = []string{
	"order", "product", "stock", "customer", "expense", "income",
	"report", "branch", "business", "staff", "role", "billing", "sms",
}
