// Package roads models the rural-road investment dataset shown on the dashboard.
// The backend proxies a spreadsheet; rows arrive as loosely typed cells and are
// normalized into Records here.
package roads

import (
	"fmt"
	"regexp"
	"strings"
)

// Column indexes of the source sheet.
const (
	colMunicipio = iota
	colProtocolo
	colPrefeito
	colDescricao
	colNomeEstrada
	colValor
)

// UnknownMunicipio is shown when the municipio cell is blank.
const UnknownMunicipio = "Não informado"

// Record is one normalized dataset row.
type Record struct {
	Municipio   string
	Protocolo   string
	Prefeito    string
	Estado      string
	Descricao   string
	NomeEstrada string
	// ValorText is the BRL-formatted value.
	ValorText string
	Valor     float64
}

// ParseRows converts raw sheet rows into Records. The first row is the header
// and is always skipped, as are the sheet's control rows.
func ParseRows(rows [][]any) []Record {
	if len(rows) <= 1 {
		return []Record{}
	}
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isControlRow(row) || !hasContent(row) {
			continue
		}
		out = append(out, toRecord(row))
	}
	return out
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func isControlRow(row []any) bool {
	m := strings.ToUpper(cell(row, colMunicipio))
	return m == "VALOR TOTAL" || m == "MUNICÍPIO" || strings.Contains(m, "ULTIMA ATUALIZAÇÃO")
}

// hasContent keeps rows with a protocolo, road name or value. A description
// alone is a sheet annotation, not a row.
func hasContent(row []any) bool {
	return cell(row, colProtocolo) != "" ||
		cell(row, colNomeEstrada) != "" ||
		cell(row, colValor) != ""
}

func toRecord(row []any) Record {
	municipio := cell(row, colMunicipio)
	if municipio == "" {
		municipio = UnknownMunicipio
	}
	desc := cell(row, colDescricao)
	raw := cell(row, colValor)
	valor := ParseCurrency(raw)
	return Record{
		Municipio:   municipio,
		Protocolo:   cell(row, colProtocolo),
		Prefeito:    cell(row, colPrefeito),
		Estado:      DeriveEstado(desc),
		Descricao:   desc,
		NomeEstrada: cell(row, colNomeEstrada),
		ValorText:   FormatBRL(valor),
		Valor:       valor,
	}
}

var (
	reParana      = regexp.MustCompile(`PARANÁ|\bPR\b`)
	reSaoPaulo    = regexp.MustCompile(`SÃO PAULO|\bSP\b`)
	reMinasGerais = regexp.MustCompile(`MINAS GERAIS|\bMG\b`)
)

// DeriveEstado extracts the state abbreviation mentioned in a description.
// Abbreviations only match as whole words. Returns "" when none is found.
func DeriveEstado(desc string) string {
	switch {
	case reParana.MatchString(desc):
		return "PR"
	case reSaoPaulo.MatchString(desc):
		return "SP"
	case reMinasGerais.MatchString(desc):
		return "MG"
	default:
		return ""
	}
}
