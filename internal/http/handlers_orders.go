package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/target/municipal-portal/internal/domain/orders"
)

const (
	ordersPath              = "/pedidos"
	orderReportName         = "relatorio_pedidos.txt"
	maxMunicipioSuggestions = 10
)

// orderLine is one editable equipment row of the order form.
type orderLine struct {
	Equipamento string
	Quantidade  int
	Observacoes string
}

// orderForm mirrors the order form for re-rendering.
type orderForm struct {
	ID          string
	Municipio   string
	Lideranca   string
	Observacoes string
	Lines       []orderLine
}

func (f orderForm) draft() orders.Draft {
	d := orders.Draft{Municipio: f.Municipio, Lideranca: f.Lideranca, Observacoes: f.Observacoes}
	for _, l := range f.Lines {
		d.Items = append(d.Items, orders.ItemInput{
			Equipamento: l.Equipamento, Quantidade: l.Quantidade, Observacoes: l.Observacoes,
		})
	}
	return d
}

func orderFormFrom(o orders.Order) orderForm {
	f := orderForm{ID: o.ID, Municipio: o.Municipio, Lideranca: o.Lideranca, Observacoes: o.Observacoes}
	for _, it := range o.Equipamentos {
		f.Lines = append(f.Lines, orderLine{Equipamento: it.Equipamento, Quantidade: it.Quantidade, Observacoes: it.Observacoes})
	}
	return f
}

// readOrderForm parses the posted order. Line fields repeat in order; a
// line with no equipment chosen is dropped.
func readOrderForm(r *http.Request) (orderForm, error) {
	if err := r.ParseForm(); err != nil {
		return orderForm{}, err
	}
	f := orderForm{
		ID:          r.PathValue("id"),
		Municipio:   strings.TrimSpace(r.PostFormValue("municipio")),
		Lideranca:   strings.TrimSpace(r.PostFormValue("lideranca")),
		Observacoes: r.PostFormValue("observacoes"),
	}
	eq := r.PostForm["equipamento"]
	qty := r.PostForm["quantidade"]
	notes := r.PostForm["item_observacoes"]
	for i, name := range eq {
		if strings.TrimSpace(name) == "" {
			continue
		}
		line := orderLine{Equipamento: name}
		if i < len(qty) {
			line.Quantidade, _ = strconv.Atoi(strings.TrimSpace(qty[i])) //nolint:errcheck // invalid counts become 0 and fail validation
		}
		if i < len(notes) {
			line.Observacoes = notes[i]
		}
		f.Lines = append(f.Lines, line)
	}
	return f, nil
}

// OrdersPage lists orders grouped by municipio, filtered by ?q=.
func (h *UIHandlers) OrdersPage(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	ov, err := h.Orders.Overview(r.Context(), store, r.URL.Query().Get("q"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	data := NewTemplateData(r, PageMeta{Title: "Pedidos", PageTitle: "Pedidos de Maquinários", CurrentPage: PageOrders}).
		With("Overview", ov).
		Build()
	if WantsPartial(r) && HXTarget(r) == "orders-list" {
		h.renderFragment(w, r, "orders-list", data)
		return
	}
	h.renderPage(w, r, http.StatusOK, data)
}

func (h *UIHandlers) renderOrderForm(w http.ResponseWriter, r *http.Request, f orderForm, errs map[string]string) {
	mode := FormModeCreate
	title := "Novo Pedido"
	if f.ID != "" {
		mode = FormModeEdit
		title = "Editar Pedido"
	}
	if len(f.Lines) == 0 {
		f.Lines = []orderLine{{Quantidade: 1}}
	}
	var total float64
	for _, l := range f.Lines {
		if eq, ok := orders.LookupEquipment(l.Equipamento); ok && l.Quantidade > 0 {
			total += eq.Value * float64(l.Quantidade)
		}
	}
	b := NewTemplateData(r, PageMeta{Title: title, PageTitle: title, CurrentPage: PageOrderForm}).
		With("Mode", string(mode)).
		With("Form", f).
		With("Catalog", orders.Catalog).
		With("Estimate", total).
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

// NewOrder renders an empty order form.
func (h *UIHandlers) NewOrder(w http.ResponseWriter, r *http.Request) {
	h.renderOrderForm(w, r, orderForm{Municipio: r.URL.Query().Get("municipio")}, nil)
}

// EditOrder renders the form for an existing order.
func (h *UIHandlers) EditOrder(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	o, err := h.Orders.Get(r.Context(), store, r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.renderOrderForm(w, r, orderFormFrom(o), nil)
}

// OrderLine renders one blank equipment row to append to the form.
func (h *UIHandlers) OrderLine(w http.ResponseWriter, r *http.Request) {
	h.renderFragment(w, r, "order-line", map[string]any{
		"Line":    orderLine{Quantidade: 1},
		"Catalog": orders.Catalog,
	})
}

// MunicipioSuggestions renders municipio names matching ?q= for the order form.
func (h *UIHandlers) MunicipioSuggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("municipio"))
	if q == "" {
		q = strings.TrimSpace(r.URL.Query().Get("q"))
	}
	var names []string
	if q != "" {
		names = orders.SearchMunicipios(q)
		if len(names) > maxMunicipioSuggestions {
			names = names[:maxMunicipioSuggestions]
		}
	}
	h.renderFragment(w, r, "municipio-suggestions", map[string]any{"Names": names, "Query": q})
}

// CreateOrder stores a new order.
func (h *UIHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.saveOrder(w, r)
}

// UpdateOrder replaces an existing order.
func (h *UIHandlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	h.saveOrder(w, r)
}

func (h *UIHandlers) saveOrder(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	f, err := readOrderForm(r)
	if err != nil {
		h.renderOrderForm(w, r, f, map[string]string{"_form": "Formulário inválido"})
		return
	}
	msg := "Pedido registrado"
	if f.ID == "" {
		_, err = h.Orders.Create(r.Context(), store, f.draft())
	} else {
		_, err = h.Orders.Update(r.Context(), store, f.ID, f.draft())
		msg = "Pedido atualizado"
	}
	if errs, ok := formErrors(err); ok {
		h.renderOrderForm(w, r, f, errs)
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, msg, "success")
	navigate(w, r, ordersPath)
}

// DeleteOrder removes an order and returns to the list.
func (h *UIHandlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	if err := h.Orders.Delete(r.Context(), store, r.PathValue("id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, "Pedido excluído", "success")
	navigate(w, r, ordersPath)
}

// OrderReport downloads the plain-text order summary.
func (h *UIHandlers) OrderReport(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	report, err := h.Orders.Report(r.Context(), store)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+orderReportName+`"`)
	if _, err := w.Write([]byte(report)); err != nil {
		h.logger().ErrorContext(r.Context(), "order report write failed", "error", err)
	}
}
