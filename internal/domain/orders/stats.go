package orders

import (
	"slices"
	"strings"
	"time"
)

// Group collects the orders of one municipality.
type Group struct {
	Municipio string
	// Lideranca is taken from the most recent order of the group.
	Lideranca string
	Orders    []Order
	Subtotal  float64
	Units     int
}

// Stats summarises a set of orders.
type Stats struct {
	Municipios int
	Orders     int
	Units      int
	Total      float64
}

// GroupByMunicipio groups orders by municipio, ordered by folded municipio name.
func GroupByMunicipio(list []Order) []Group {
	idx := make(map[string]int)
	var groups []Group
	var newest []time.Time
	for _, o := range list {
		i, ok := idx[o.Municipio]
		if !ok {
			i = len(groups)
			idx[o.Municipio] = i
			groups = append(groups, Group{Municipio: o.Municipio})
			newest = append(newest, time.Time{})
		}
		g := &groups[i]
		g.Orders = append(g.Orders, o)
		g.Subtotal = round2(g.Subtotal + o.ValorTotal)
		g.Units += o.Units()
		if g.Lideranca == "" || !o.CreatedAt.Before(newest[i]) {
			g.Lideranca = o.Lideranca
			newest[i] = o.CreatedAt
		}
	}
	slices.SortStableFunc(groups, func(a, b Group) int {
		return strings.Compare(Fold(a.Municipio), Fold(b.Municipio))
	})
	return groups
}

// Summarize computes the order statistics.
func Summarize(list []Order) Stats {
	s := Stats{Orders: len(list)}
	seen := make(map[string]struct{})
	for _, o := range list {
		if len(o.Equipamentos) > 0 {
			seen[o.Municipio] = struct{}{}
		}
		s.Units += o.Units()
		s.Total = round2(s.Total + o.ValorTotal)
	}
	s.Municipios = len(seen)
	return s
}

// FilterOrders keeps orders whose municipio, lideranca or any equipment name
// contains query, ignoring case and accents.
func FilterOrders(list []Order, query string) []Order {
	if Fold(query) == "" {
		return list
	}
	out := make([]Order, 0, len(list))
	for _, o := range list {
		if matchesOrder(o, query) {
			out = append(out, o)
		}
	}
	return out
}

func matchesOrder(o Order, query string) bool {
	if ContainsFolded(o.Municipio, query) || ContainsFolded(o.Lideranca, query) {
		return true
	}
	for _, it := range o.Equipamentos {
		if ContainsFolded(it.Equipamento, query) {
			return true
		}
	}
	return false
}
