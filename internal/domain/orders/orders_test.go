package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "sao jose dos pinhais", Fold("  São José dos Pinhais "))
	assert.Equal(t, "maringa", Fold("MARINGÁ"))
	assert.True(t, ContainsFolded("Foz do Iguaçu", "iguacu"))
	assert.True(t, ContainsFolded("anything", "  "))
	assert.False(t, ContainsFolded("Curitiba", "londrina"))
}

func TestSearchMunicipios(t *testing.T) {
	got := SearchMunicipios("sao jose")
	require.NotEmpty(t, got)
	for _, m := range got {
		assert.Contains(t, Fold(m), "sao jose")
	}
	assert.Contains(t, got, "São José dos Pinhais")

	all := SearchMunicipios("")
	assert.Len(t, all, len(Municipios))
	assert.Equal(t, "Abatiá", all[0])
	// Ângulo sorts with the A's once folded.
	assert.Less(t, indexOf(all, "Ângulo"), indexOf(all, "Bandeirantes"))
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func TestFilterMunicipalities(t *testing.T) {
	list := []Municipality{{ID: "1", Nome: "Maringá"}, {ID: "2", Nome: "Curitiba"}}
	assert.Equal(t, list, FilterMunicipalities(list, ""))
	got := FilterMunicipalities(list, "maringa")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestLookupEquipment(t *testing.T) {
	eq, ok := LookupEquipment("Motoniveladora")
	require.True(t, ok)
	assert.InDelta(t, 1217352.22, eq.Value, 0.001)

	_, ok = LookupEquipment("Helicóptero")
	assert.False(t, ok)
}

func TestDraftBuild(t *testing.T) {
	d := Draft{
		Municipio: "Cascavel",
		Lideranca: "Maria",
		Items: []ItemInput{
			{Equipamento: "Motoniveladora", Quantidade: 2},
			{Equipamento: "Bob Cat", Quantidade: 1, Observacoes: "urgente"},
		},
	}
	o, err := d.Build()
	require.NoError(t, err)
	require.Len(t, o.Equipamentos, 2)
	assert.InDelta(t, 2434704.44, o.Equipamentos[0].ValorTotal, 0.001)
	assert.InDelta(t, 1217352.22, o.Equipamentos[0].ValorUnitario, 0.001)
	assert.InDelta(t, 2864704.44, o.ValorTotal, 0.001)
	assert.Equal(t, 3, o.Units())
}

func TestDraftBuild_Validation(t *testing.T) {
	valid := func() Draft {
		return Draft{
			Municipio: "Cascavel",
			Lideranca: "Maria",
			Items:     []ItemInput{{Equipamento: "Escavadeira", Quantidade: 1}},
		}
	}
	tests := []struct {
		name  string
		mut   func(*Draft)
		field string
	}{
		{"missing municipio", func(d *Draft) { d.Municipio = " " }, "municipio"},
		{"unknown municipio", func(d *Draft) { d.Municipio = "Atlantis" }, "municipio"},
		{"missing lideranca", func(d *Draft) { d.Lideranca = "" }, "lideranca"},
		{"long lideranca", func(d *Draft) { d.Lideranca = strings.Repeat("a", 201) }, "lideranca"},
		{"long notes", func(d *Draft) { d.Observacoes = strings.Repeat("x", 1001) }, "observacoes"},
		{"no items", func(d *Draft) { d.Items = nil }, "equipamentos"},
		{"unknown equipment", func(d *Draft) { d.Items[0].Equipamento = "Foguete" }, "equipamento"},
		{"zero quantity", func(d *Draft) { d.Items[0].Quantidade = 0 }, "quantidade"},
		{"long item notes", func(d *Draft) { d.Items[0].Observacoes = strings.Repeat("y", 501) }, "observacoes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mut(&d)
			_, err := d.Build()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestGroupAndSummarize(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []Order{
		{ID: "1", Municipio: "Toledo", Lideranca: "Ana", ValorTotal: 100, CreatedAt: t0,
			Equipamentos: []Item{{Equipamento: "Bob Cat", Quantidade: 2}}},
		{ID: "2", Municipio: "Abatiá", Lideranca: "Rui", ValorTotal: 50, CreatedAt: t0,
			Equipamentos: []Item{{Equipamento: "Escavadeira", Quantidade: 1}}},
		{ID: "3", Municipio: "Toledo", Lideranca: "Bia", ValorTotal: 25.5, CreatedAt: t0.Add(time.Hour),
			Equipamentos: []Item{{Equipamento: "Motoniveladora", Quantidade: 3}}},
	}

	groups := GroupByMunicipio(list)
	require.Len(t, groups, 2)
	assert.Equal(t, "Abatiá", groups[0].Municipio)
	assert.Equal(t, "Toledo", groups[1].Municipio)
	assert.Equal(t, "Bia", groups[1].Lideranca)
	assert.InDelta(t, 125.5, groups[1].Subtotal, 0.001)
	assert.Equal(t, 5, groups[1].Units)

	s := Summarize(list)
	assert.Equal(t, Stats{Municipios: 2, Orders: 3, Units: 6, Total: 175.5}, s)
}

func TestFilterOrders(t *testing.T) {
	list := []Order{
		{ID: "1", Municipio: "Maringá", Lideranca: "Ana", Equipamentos: []Item{{Equipamento: "Bob Cat"}}},
		{ID: "2", Municipio: "Toledo", Lideranca: "José", Equipamentos: []Item{{Equipamento: "Pá Carregadeira"}}},
	}
	assert.Len(t, FilterOrders(list, ""), 2)
	assert.Equal(t, "1", FilterOrders(list, "maringa")[0].ID)
	assert.Equal(t, "2", FilterOrders(list, "jose")[0].ID)
	assert.Equal(t, "2", FilterOrders(list, "pa carreg")[0].ID)
	assert.Empty(t, FilterOrders(list, "curitiba"))
}
