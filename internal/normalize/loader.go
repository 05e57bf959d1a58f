package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// dictionaryFile is the on-disk abbreviation dictionary format.
//
//	abbreviations:
//	  - shorthand: phos
//	    expansions: [phosphorus, phosphatase]
//	strip_suffixes: [level, count]
//
// A list rather than a mapping keeps operator-defined insertion order.
type dictionaryFile struct {
	Version       string `yaml:"version"`
	Abbreviations []struct {
		Shorthand  string   `yaml:"shorthand"`
		Expansions []string `yaml:"expansions"`
	} `yaml:"abbreviations"`
	StripSuffixes []string `yaml:"strip_suffixes"`
}

// ParseDictionary builds a dictionary from YAML bytes
func ParseDictionary(data []byte) (*Dictionary, error) {
	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing abbreviation dictionary: %w", err)
	}

	d := NewDictionary()
	for i, entry := range file.Abbreviations {
		if Normalize(entry.Shorthand).IsEmpty() {
			return nil, fmt.Errorf("abbreviation %d: empty shorthand", i)
		}
		if len(entry.Expansions) == 0 {
			return nil, fmt.Errorf("abbreviation %q: no expansions", entry.Shorthand)
		}
		d.Add(entry.Shorthand, entry.Expansions...)
	}
	d.AddStripSuffix(file.StripSuffixes...)

	return d, nil
}

// LoadDictionaryFile reads a YAML abbreviation dictionary from path
func LoadDictionaryFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading abbreviation dictionary %s: %w", path, err)
	}
	return ParseDictionary(data)
}
