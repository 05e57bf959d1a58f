package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/model"
)

const (
	conceptsFile = "concepts.csv"
	mappingsFile = "mappings.csv"

	synonymSeparator = "|"
)

// CSVSource reads a catalog from a directory holding concepts.csv
// (identifier,name,synonyms) and an optional mappings.csv
// (source_text,identifier,source_system). Synonyms are separated by "|".
// Malformed rows are logged and skipped.
type CSVSource struct {
	Dir    string
	logger *zap.Logger
}

// NewCSVSource creates a CSV catalog source
func NewCSVSource(dir string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{Dir: dir, logger: logger.Named("catalog")}
}

// Load reads both files
func (s *CSVSource) Load(ctx context.Context) (*Catalog, error) {
	c := &Catalog{}

	err := s.readCSV(ctx, filepath.Join(s.Dir, conceptsFile), func(record []string) error {
		if len(record) < 2 {
			return fmt.Errorf("insufficient columns: expected at least 2, got %d", len(record))
		}
		id := strings.TrimSpace(record[0])
		if id == "" {
			return errors.New("empty identifier")
		}

		concept := model.Concept{Identifier: model.Identifier(id)}
		if name := strings.TrimSpace(record[1]); name != "" {
			concept.Names = []string{name}
		}
		if len(record) > 2 {
			concept.Synonyms = splitSynonyms(record[2])
		}
		c.Concepts = append(c.Concepts, concept)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.readCSV(ctx, filepath.Join(s.Dir, mappingsFile), func(record []string) error {
		if len(record) < 2 {
			return fmt.Errorf("insufficient columns: expected at least 2, got %d", len(record))
		}
		m := model.MappingRecord{
			SourceText: record[0],
			Identifier: model.Identifier(record[1]),
		}
		if len(record) > 2 {
			m.SourceSystem = record[2]
		}
		if strings.TrimSpace(m.SourceText) == "" || strings.TrimSpace(string(m.Identifier)) == "" {
			return errors.New("empty source text or identifier")
		}
		c.Mappings = append(c.Mappings, m)
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c.Mappings = normalizeMappings(c.Mappings)

	s.logger.Info("catalog loaded",
		zap.String("dir", s.Dir),
		zap.Int("concepts", len(c.Concepts)),
		zap.Int("mappings", len(c.Mappings)))
	return c, nil
}

// readCSV skips the header row and hands every record to mapFunc
func (s *CSVSource) readCSV(ctx context.Context, filename string, mapFunc func([]string) error) error {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Base(filename) == mappingsFile {
			return err
		}
		return model.Unavailable("opening "+filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to read header of %s: %w", filename, err)
	}

	loaded, skipped := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("error reading CSV record", zap.String("file", filename), zap.Error(err))
			skipped++
			continue
		}

		if err := mapFunc(record); err != nil {
			line, _ := reader.FieldPos(0)
			s.logger.Warn("skipping CSV record",
				zap.String("file", filename), zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		loaded++
	}

	s.logger.Debug("CSV read complete",
		zap.String("file", filename), zap.Int("loaded", loaded), zap.Int("skipped", skipped))
	return nil
}

func splitSynonyms(field string) []string {
	var out []string
	for _, s := range strings.Split(field, synonymSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
