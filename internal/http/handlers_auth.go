package httpx

import (
	"net/http"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

// Home renders the public landing page.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	data := NewTemplateData(r, PageMeta{Title: "Início", PageTitle: "Portal Municipal", CurrentPage: PageHome}).Build()
	h.renderPage(w, r, http.StatusOK, data)
}

// LoginPage renders the login form. Signed-in users skip straight to their destination.
func (h *UIHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get(RedirectParam)
	if sessionState(r).IsAuthenticated() {
		navigate(w, r, h.afterLogin(redirect))
		return
	}
	h.renderLogin(w, r, loginForm{Redirect: redirect}, http.StatusOK)
}

type loginForm struct {
	Username string
	Redirect string
	Message  string
}

func (h *UIHandlers) renderLogin(w http.ResponseWriter, r *http.Request, f loginForm, status int) {
	b := NewTemplateData(r, PageMeta{Title: "Entrar", PageTitle: "Entrar", CurrentPage: PageLogin}).
		With("Username", f.Username).
		With("Redirect", safeRedirectPath(f.Redirect))
	if f.Message != "" {
		b.WithError(f.Message)
	}
	h.renderPage(w, r, status, b.Build())
}

// Login handles the login form. Failures re-render the form with the reason;
// success reloads the whole page so the navigation reflects the new session.
func (h *UIHandlers) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := h.caller(r)
	if !ok {
		h.renderError(w, r, http.StatusInternalServerError, msgUnexpected)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, loginForm{Message: "Formulário inválido"}, http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Redirect: r.PostFormValue(RedirectParam),
	}
	out := h.Auth.Login(r.Context(), store, domainauth.Credentials{
		Username: form.Username,
		Password: r.PostFormValue("password"),
	})
	if !out.OK {
		form.Message = out.Message
		status := http.StatusUnauthorized
		if IsHTMX(r) {
			// htmx does not swap error responses.
			status = http.StatusOK
		}
		h.renderLogin(w, r, form, status)
		return
	}
	navigateFull(w, r, h.afterLogin(form.Redirect))
}

// Logout ends the session, clears the cookie and returns to the anonymous landing.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if store, ok := h.caller(r); ok {
		h.Auth.Logout(r.Context(), store)
	}
	h.Cookies.clear(w, r)
	navigateFull(w, r, h.Landings.Anonymous)
}

func (h *UIHandlers) afterLogin(redirect string) string {
	if redirect != "" {
		if p := safeRedirectPath(redirect); p != "/" && p != h.Landings.Anonymous {
			return p
		}
	}
	if h.Landings.AfterLogin != "" {
		return h.Landings.AfterLogin
	}
	return "/"
}
