package roads

import (
	"bufio"
	"io"
	"strings"
)

// ExportFilename is the download name for CSV exports.
const ExportFilename = "estradas_rurais_export.csv"

// ExportHeaders are the CSV column titles, in order.
var ExportHeaders = []string{"Município", "Protocolo", "Prefeito", "Estado", "Descrição", "Valor"}

// WriteCSV writes records as CSV with every field quoted and embedded quotes doubled.
// Lines are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	writeLine(bw, ExportHeaders)
	for _, r := range records {
		bw.WriteByte('\n')
		writeLine(bw, []string{r.Municipio, r.Protocolo, r.Prefeito, r.Estado, r.Descricao, r.ValorText})
	}
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
		bw.WriteByte('"')
	}
}
