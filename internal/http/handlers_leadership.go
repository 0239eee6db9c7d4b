package httpx

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/target/municipal-portal/internal/domain/leadership"
)

const liderancasPath = "/liderancas"

// Municipios lists the backend municipality directory, filtered by ?q=.
func (h *UIHandlers) Municipios(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := h.Leadership.Municipalities(r.Context(), store, q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	data := NewTemplateData(r, PageMeta{Title: "Municípios", PageTitle: "Municípios", CurrentPage: PageMunicipios}).
		With("Municipios", list).
		With("Query", q).
		Build()
	if WantsPartial(r) && HXTarget(r) == "municipios-list" {
		h.renderFragment(w, r, "municipios-list", data)
		return
	}
	h.renderPage(w, r, http.StatusOK, data)
}

func (h *UIHandlers) renderLiderancas(w http.ResponseWriter, r *http.Request, form leadership.Request, errs map[string]string) {
	store, _ := h.caller(r)
	municipio := strings.TrimSpace(r.URL.Query().Get("municipio"))
	ov, err := h.Leadership.Overview(r.Context(), store, municipio)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	title := "Lideranças"
	if ov.Municipio != "" {
		title = "Lideranças · " + ov.Municipio
	}
	b := NewTemplateData(r, PageMeta{Title: title, PageTitle: title, CurrentPage: PageLiderancas}).
		With("Overview", ov).
		With("Form", form).
		WithFieldErrors(errs)
	status := http.StatusOK
	if len(errs) > 0 {
		b.WithError(msgFixBelow)
		if !IsHTMX(r) {
			status = http.StatusUnprocessableEntity
		}
	}
	h.renderPage(w, r, status, b.Build())
}

// Liderancas lists leadership requests, optionally for one municipio.
func (h *UIHandlers) Liderancas(w http.ResponseWriter, r *http.Request) {
	h.renderLiderancas(w, r, leadership.Request{}, nil)
}

// CreateLideranca files a leadership request.
func (h *UIHandlers) CreateLideranca(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	if err := r.ParseForm(); err != nil {
		h.renderLiderancas(w, r, leadership.Request{}, map[string]string{"_form": "Formulário inválido"})
		return
	}
	req := leadership.Request{
		Pedido:    r.PostFormValue("pedido"),
		Protocolo: r.PostFormValue("protocolo"),
		Lideranca: r.PostFormValue("lideranca"),
		Descricao: r.PostFormValue("descricao"),
	}
	_, err := h.Leadership.Create(r.Context(), store, req)
	if errs, ok := formErrors(err); ok {
		h.renderLiderancas(w, r, req, errs)
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, "Solicitação registrada", "success")
	navigate(w, r, h.liderancasURL(r))
}

// DeleteLideranca removes a leadership request.
func (h *UIHandlers) DeleteLideranca(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	if err := h.Leadership.Delete(r.Context(), store, r.PathValue("id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, "Solicitação excluída", "success")
	navigate(w, r, h.liderancasURL(r))
}

// liderancasURL keeps the municipio filter across form posts.
func (h *UIHandlers) liderancasURL(r *http.Request) string {
	m := strings.TrimSpace(r.URL.Query().Get("municipio"))
	if m == "" {
		m = strings.TrimSpace(r.FormValue("municipio"))
	}
	if m == "" {
		return liderancasPath
	}
	return liderancasPath + "?" + url.Values{"municipio": {m}}.Encode()
}
