package roads

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter narrows a dataset. Zero values disable each criterion.
type Filter struct {
	// Municipio is a case-insensitive substring of the municipio.
	Municipio string
	// Estrada is a case-insensitive substring of the road name or description.
	Estrada string
	// Estado is an exact state abbreviation.
	Estado string
	// Min and Max are inclusive value bounds.
	Min *float64
	Max *float64
}

// IsZero reports whether the filter has no criteria set.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Municipio) == "" && strings.TrimSpace(f.Estrada) == "" &&
		f.Estado == "" && f.Min == nil && f.Max == nil
}

// Match reports whether r satisfies every criterion in f.
func (f Filter) Match(r Record) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Municipio)); q != "" &&
		!strings.Contains(strings.ToLower(r.Municipio), q) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Estrada)); q != "" &&
		!strings.Contains(strings.ToLower(r.NomeEstrada), q) &&
		!strings.Contains(strings.ToLower(r.Descricao), q) {
		return false
	}
	if f.Estado != "" && r.Estado != f.Estado {
		return false
	}
	if f.Min != nil && r.Valor < *f.Min {
		return false
	}
	if f.Max != nil && r.Valor > *f.Max {
		return false
	}
	return true
}

// Apply returns the records matching f, preserving order.
func Apply(records []Record, f Filter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Column names a sortable column.
type Column string

const (
	ColMunicipio   Column = "municipio"
	ColProtocolo   Column = "protocolo"
	ColPrefeito    Column = "prefeito"
	ColEstado      Column = "estado"
	ColDescricao   Column = "descricao"
	ColNomeEstrada Column = "nomeEstrada"
	ColValor       Column = "valor"
)

// ParseColumn returns the column for s, defaulting to ColMunicipio.
func ParseColumn(s string) Column {
	switch c := Column(s); c {
	case ColMunicipio, ColProtocolo, ColPrefeito, ColEstado, ColDescricao, ColNomeEstrada, ColValor:
		return c
	default:
		return ColMunicipio
	}
}

func (c Column) text(r Record) string {
	switch c {
	case ColProtocolo:
		return r.Protocolo
	case ColPrefeito:
		return r.Prefeito
	case ColEstado:
		return r.Estado
	case ColDescricao:
		return r.Descricao
	case ColNomeEstrada:
		return r.NomeEstrada
	default:
		return r.Municipio
	}
}

// Sort orders records in place by column. Text columns use pt-BR collation
// ignoring case; ColValor sorts numerically. Ties keep their input order.
func Sort(records []Record, col Column, desc bool) {
	dir := 1
	if desc {
		dir = -1
	}
	if col == ColValor {
		slices.SortStableFunc(records, func(a, b Record) int {
			switch {
			case a.Valor < b.Valor:
				return -dir
			case a.Valor > b.Valor:
				return dir
			default:
				return 0
			}
		})
		return
	}
	// collate.Collator is not safe for concurrent use.
	cl := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
	slices.SortStableFunc(records, func(a, b Record) int {
		return dir * cl.CompareString(col.text(a), col.text(b))
	})
}

// DefaultPageSize is used when a request does not pick one.
const DefaultPageSize = 25

// PageSizes are the page sizes offered in the UI.
var PageSizes = []int{10, 25, 50, 100}

// Page is one page of records.
type Page struct {
	Items      []Record
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	// From and To are 1-based positions of the first and last item shown.
	From int
	To   int
}

// Paginate slices records into a page. Out-of-range pages reset to page 1.
func Paginate(records []Record, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(records)
	totalPages := max(1, (total+size-1)/size)
	if page < 1 || page > totalPages {
		page = 1
	}
	start := (page - 1) * size
	end := min(start+size, total)
	p := Page{
		Items:      records[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	}
	if total > 0 {
		p.From = start + 1
		p.To = end
	}
	return p
}

// Summary aggregates a set of records for the dashboard cards.
type Summary struct {
	Count      int
	Total      float64
	TotalText  string
	Municipios int
	// Estados lists the distinct non-empty states, sorted.
	Estados []string
}

// Summarize computes totals over records.
func Summarize(records []Record) Summary {
	municipios := make(map[string]struct{})
	estados := make(map[string]struct{})
	var total float64
	for _, r := range records {
		total += r.Valor
		municipios[r.Municipio] = struct{}{}
		if r.Estado != "" {
			estados[r.Estado] = struct{}{}
		}
	}
	list := make([]string, 0, len(estados))
	for e := range estados {
		list = append(list, e)
	}
	slices.Sort(list)
	return Summary{
		Count:      len(records),
		Total:      total,
		TotalText:  FormatBRL(total),
		Municipios: len(municipios),
		Estados:    list,
	}
}
