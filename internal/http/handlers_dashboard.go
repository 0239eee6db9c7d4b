package httpx

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/target/municipal-portal/internal/domain/roads"
	"github.com/target/municipal-portal/internal/service"
)

const (
	dashboardPath      = "/dashboard"
	dashboardTablePath = "/dashboard/table"
	dashboardExport    = "/dashboard/export.csv"
	minRefresh         = 5 * time.Second
)

type columnHeader struct {
	Key    roads.Column
	Label  string
	URL    string
	Active bool
	Desc   bool
}

//nolint:gochecknoglobals // table column order
var dashboardColumns = []struct {
	key   roads.Column
	label string
}{
	{roads.ColMunicipio, "Município"},
	{roads.ColProtocolo, "Protocolo"},
	{roads.ColPrefeito, "Prefeito"},
	{roads.ColEstado, "Estado"},
	{roads.ColNomeEstrada, "Estrada"},
	{roads.ColValor, "Valor"},
}

// parseDatasetQuery reads filters, sort and paging from the query string.
func (h *UIHandlers) parseDatasetQuery(q url.Values) service.DatasetQuery {
	dq := service.DatasetQuery{
		Filter: roads.Filter{
			Municipio: strings.TrimSpace(q.Get("municipio")),
			Estrada:   strings.TrimSpace(q.Get("estrada")),
			Estado:    strings.TrimSpace(q.Get("estado")),
			Min:       parseAmount(q.Get("min")),
			Max:       parseAmount(q.Get("max")),
		},
		Desc:     q.Get("dir") == "desc",
		Page:     1,
		PageSize: h.pageSize(),
	}
	if s := q.Get("sort"); s != "" {
		dq.Sort = roads.ParseColumn(s)
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		dq.Page = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && slices.Contains(roads.PageSizes, n) {
		dq.PageSize = n
	}
	return dq
}

func (h *UIHandlers) pageSize() int {
	if slices.Contains(roads.PageSizes, h.PageSize) {
		return h.PageSize
	}
	return roads.DefaultPageSize
}

// parseAmount accepts "1234.5", "1.234,50" or "R$ 1.234,50"; blank means unset.
func parseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v := roads.ParseCurrency(s)
	return &v
}

func (h *UIHandlers) refreshSeconds() int {
	d := h.RefreshInterval
	if d < minRefresh {
		d = minRefresh
	}
	return int(d / time.Second)
}

// dashboardData queries the dataset and assembles the table view.
func (h *UIHandlers) dashboardData(r *http.Request) (map[string]any, error) {
	store, _ := h.caller(r)
	q := r.URL.Query()
	dq := h.parseDatasetQuery(q)
	view, err := h.Roads.Query(r.Context(), store, dq)
	if err != nil {
		return nil, err
	}

	headers := make([]columnHeader, 0, len(dashboardColumns))
	for _, c := range dashboardColumns {
		active := dq.Sort == c.key
		next := url.Values{}
		for k, v := range q {
			next[k] = v
		}
		next.Set("sort", string(c.key))
		next.Del("page")
		if active && !dq.Desc {
			next.Set("dir", "desc")
		} else {
			next.Del("dir")
		}
		headers = append(headers, columnHeader{
			Key: c.key, Label: c.label, URL: dashboardPath + "?" + next.Encode(),
			Active: active, Desc: active && dq.Desc,
		})
	}

	exportQ := url.Values{}
	for k, v := range q {
		if k != "page" && k != "page_size" && k != "auto" {
			exportQ[k] = v
		}
	}

	b := NewTemplateData(r, PageMeta{Title: "Estradas Rurais", PageTitle: "Estradas Rurais", CurrentPage: PageDashboard}).
		With("View", view).
		With("Filter", dq.Filter).
		With("Sort", q.Get("sort")).
		With("Dir", q.Get("dir")).
		With("MinText", q.Get("min")).
		With("MaxText", q.Get("max")).
		With("Headers", headers).
		With("PageSizes", roads.PageSizes).
		With("Auto", q.Get("auto") == "1").
		With("RefreshSeconds", h.refreshSeconds()).
		With("TableURL", dashboardTablePath+"?"+q.Encode()).
		With("ExportURL", dashboardExport+"?"+exportQ.Encode()).
		WithPagination(PaginationData{
			Page: view.Page.Page, PageSize: view.Page.PageSize,
			TotalPages: view.Page.TotalPages, BasePath: dashboardPath,
		})
	if view.Stale {
		b.With("StaleNotice", "Exibindo dados salvos: o servidor não respondeu na última atualização.")
	}
	return b.Build(), nil
}

// Dashboard renders the rural roads table with filters and summary cards.
func (h *UIHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboardData(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, data)
}

// DashboardTable renders only the table and summary, for filter changes and auto refresh.
func (h *UIHandlers) DashboardTable(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboardData(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	SetHXPushURL(w, dashboardPath+"?"+r.URL.Query().Encode())
	h.renderFragment(w, r, "dashboard-table", data)
}

// DashboardExport downloads the filtered rows, in the current sort order, as CSV.
func (h *UIHandlers) DashboardExport(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	records, err := h.Roads.Export(r.Context(), store, h.parseDatasetQuery(r.URL.Query()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+roads.ExportFilename+`"`)
	if err := roads.WriteCSV(w, records); err != nil {
		h.logger().ErrorContext(r.Context(), "csv export write failed", "error", err)
	}
}
