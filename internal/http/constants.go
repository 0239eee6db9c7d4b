package httpx

// CurrentPage identifiers used by templates and navigation.
const (
	PageHome       = "home"
	PageLogin      = "login"
	PageDashboard  = "dashboard"
	PageUsers      = "users"
	PageUserForm   = "user-form"
	PageOrders     = "orders"
	PageOrderForm  = "order-form"
	PageMunicipios = "municipios"
	PageLiderancas = "liderancas"
	PageLoading    = "loading"
	PageError      = "error"
)

// Template paths used for loading templates in tests and development.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
)

// FormMode represents the mode of a form (create or edit).
type FormMode string

const (
	FormModeEdit   FormMode = "edit"
	FormModeCreate FormMode = "create"
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageHome:       "home-content",
	PageLogin:      "login-content",
	PageDashboard:  "dashboard-content",
	PageUsers:      "users-content",
	PageUserForm:   "user-form-content",
	PageOrders:     "orders-content",
	PageOrderForm:  "order-form-content",
	PageMunicipios: "municipios-content",
	PageLiderancas: "liderancas-content",
	PageLoading:    "loading-content",
	PageError:      "error-content",
}

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to home-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "home-content"
}
