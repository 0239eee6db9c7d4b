package orders

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

// Field limits enforced before an order is sent to the backend.
const (
	MaxNameLen       = 200
	MaxItemNotesLen  = 500
	MaxOrderNotesLen = 1000
	MinQuantity      = 1
)

// Item is one equipment line of an order.
type Item struct {
	Equipamento   string  `json:"equipamento"`
	Quantidade    int     `json:"quantidade"`
	ValorUnitario float64 `json:"valor_unitario"`
	ValorTotal    float64 `json:"valor_total"`
	Observacoes   string  `json:"observacoes,omitempty"`
}

// Order is an equipment order for one municipality.
type Order struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Municipio    string    `json:"municipio"`
	Lideranca    string    `json:"lideranca"`
	Equipamentos []Item    `json:"equipamentos"`
	ValorTotal   float64   `json:"valor_total"`
	Observacoes  string    `json:"observacoes,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Units returns the number of equipment units across all lines.
func (o Order) Units() int {
	n := 0
	for _, it := range o.Equipamentos {
		n += it.Quantidade
	}
	return n
}

// ItemInput is a requested line before pricing.
type ItemInput struct {
	Equipamento string
	Quantidade  int
	Observacoes string
}

// Draft is an order under construction.
type Draft struct {
	Municipio   string
	Lideranca   string
	Observacoes string
	Items       []ItemInput
}

// Build validates the draft and prices every line from the catalog.
func (d Draft) Build() (Order, error) {
	o := Order{
		Municipio:   strings.TrimSpace(d.Municipio),
		Lideranca:   strings.TrimSpace(d.Lideranca),
		Observacoes: strings.TrimSpace(d.Observacoes),
	}
	if err := checkName("municipio", o.Municipio); err != nil {
		return Order{}, err
	}
	if !IsKnownMunicipio(o.Municipio) {
		return Order{}, apperrors.ValidationField("municipio", "Município não encontrado na lista do Paraná")
	}
	if err := checkName("lideranca", o.Lideranca); err != nil {
		return Order{}, err
	}
	if utf8.RuneCountInString(o.Observacoes) > MaxOrderNotesLen {
		return Order{}, apperrors.ValidationField("observacoes", "Observações do pedido excedem 1000 caracteres")
	}
	if len(d.Items) == 0 {
		return Order{}, apperrors.ValidationField("equipamentos", "Adicione ao menos um equipamento")
	}
	o.Equipamentos = make([]Item, 0, len(d.Items))
	for _, in := range d.Items {
		it, err := priceItem(in)
		if err != nil {
			return Order{}, err
		}
		o.Equipamentos = append(o.Equipamentos, it)
	}
	o.ValorTotal = Total(o.Equipamentos)
	return o, nil
}

func checkName(field, v string) error {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return apperrors.ValidationField(field, field+" é obrigatório")
	}
	if n > MaxNameLen {
		return apperrors.ValidationField(field, field+" excede 200 caracteres")
	}
	return nil
}

func priceItem(in ItemInput) (Item, error) {
	eq, ok := LookupEquipment(in.Equipamento)
	if !ok {
		return Item{}, apperrors.ValidationField("equipamento", "Equipamento desconhecido: "+in.Equipamento)
	}
	if in.Quantidade < MinQuantity {
		return Item{}, apperrors.ValidationField("quantidade", "Quantidade deve ser maior ou igual a 1")
	}
	notes := strings.TrimSpace(in.Observacoes)
	if utf8.RuneCountInString(notes) > MaxItemNotesLen {
		return Item{}, apperrors.ValidationField("observacoes", "Observações do equipamento excedem 500 caracteres")
	}
	return Item{
		Equipamento:   eq.Name,
		Quantidade:    in.Quantidade,
		ValorUnitario: eq.Value,
		ValorTotal:    round2(eq.Value * float64(in.Quantidade)),
		Observacoes:   notes,
	}, nil
}

// Total sums the line totals.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.ValorTotal
	}
	return round2(sum)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
