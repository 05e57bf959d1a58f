package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clinical-rosetta/internal/match"
)

var csvHeader = []string{"input", "identifier", "name", "confidence", "provenance"}

// readLines returns the non-blank lines of r, trimmed
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

// writeResultsCSV writes one row per result in input order
func writeResultsCSV(w io.Writer, results []match.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.SourceText,
			string(r.Identifier),
			r.Name,
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			string(r.Provenance),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func countResolved(results []match.Result) int {
	n := 0
	for _, r := range results {
		if r.Resolved() {
			n++
		}
	}
	return n
}
