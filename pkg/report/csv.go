package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Artifact naming. The file name is fixed so each run overwrites the previous
// artifact and the BI dataset always points at the latest data.
const (
	FileName  = "Dashboard_Usuarios_Catia_PROCESADO_COMPLETO.csv"
	KeyPrefix = "reports/etl-process1/"
)

// ObjectKey is the full object key of the CSV artifact.
func ObjectKey() string {
	return KeyPrefix + FileName
}

// WriteCSV streams the header row plus one record per aggregated row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV renders rows to an in-memory CSV payload.
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
