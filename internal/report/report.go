// Package report writes solved surfaces to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-analytics/internal/surface"
)

const (
	JSONFile = "surface.json"
	CSVFile  = "surface.csv"
)

var csvHeader = []string{"strike", "days", "type", "price", "iv", "iterations", "method", "status", "reason"}

// WriteJSON writes s as indented JSON to outdir/surface.json.
func WriteJSON(s *surface.Surface, outdir string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, JSONFile), b, 0644)
}

// WriteCSV writes one row per point to outdir/surface.csv.
func WriteCSV(s *surface.Surface, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, CSVFile))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := EncodeCSV(f, s); err != nil {
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return f.Close()
}

// EncodeCSV writes the CSV form of s to w. Prices keep 4 decimal places
// and volatilities 6; a point without a solution has an empty iv.
func EncodeCSV(w io.Writer, s *surface.Surface) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range s.Points {
		iv := ""
		if p.Converged() {
			iv = decimal.NewFromFloat(p.Volatility).StringFixed(6)
		}
		row := []string{
			decimal.NewFromFloat(p.Strike).String(),
			strconv.Itoa(p.Days),
			string(p.Type),
			decimal.NewFromFloat(p.Price).StringFixed(4),
			iv,
			strconv.Itoa(p.Iterations),
			string(p.Method),
			string(p.Status),
			string(p.Reason),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write creates outdir if needed and writes both reports.
func Write(s *surface.Surface, outdir string) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := WriteJSON(s, outdir); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return WriteCSV(s, outdir)
}
