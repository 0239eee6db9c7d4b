// Package orders models equipment orders placed on behalf of municipalities:
// the equipment catalog, the municipality list, order validation and totals.
package orders

// Equipment is a catalog entry with its reference unit price in BRL.
type Equipment struct {
	Name  string
	Value float64
}

// Catalog is the fixed equipment price list, most expensive first.
var Catalog = []Equipment{
	{Name: "Trator de Esteiras", Value: 1222500.00},
	{Name: "Motoniveladora", Value: 1217352.22},
	{Name: "Caminhão Caçamba 6x4", Value: 905300.00},
	{Name: "Caminhão Prancha", Value: 900000.00},
	{Name: "Escavadeira", Value: 830665.00},
	{Name: "Pá Carregadeira", Value: 778250.00},
	{Name: "Rolocompactador", Value: 716180.91},
	{Name: "Retroescavadeira", Value: 484111.11},
	{Name: "Bob Cat", Value: 430000.00},
	{Name: "Trator 100–110CV", Value: 410000.00},
}

// LookupEquipment finds a catalog entry by exact name.
func LookupEquipment(name string) (Equipment, bool) {
	for _, e := range Catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Equipment{}, false
}
