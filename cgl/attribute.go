package cgl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

//AttributeKind tags an attribute as numeric or nominal.
type AttributeKind int

const (
	//Numeric attributes are ordered; splits test value <= threshold.
	Numeric AttributeKind = iota
	//Nominal attributes are categorical; splits test value == category.
	Nominal
)

//Attribute describes one column of the feature matrix. Nominal attributes
//carry the list of category names; their encoded values are the indices
//0..len(Values)-1.
type Attribute struct {
	Name   string        `json:"name"`
	Kind   AttributeKind `json:"kind"`
	Values []string      `json:"values,omitempty"`
}

//Size returns the cardinality of a nominal attribute.
func (a Attribute) Size() int {
	return len(a.Values)
}

//ValueName renders an encoded attribute value for reports and figures.
func (a Attribute) ValueName(v float64) string {
	if a.Kind == Nominal {
		l := int(v)
		if l >= 0 && l < len(a.Values) {
			return a.Values[l]
		}
		return strconv.Itoa(l)
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

//NumericAttributes builds the default all-numeric schema for a feature
//matrix of width p, named V1..Vp.
func NumericAttributes(p int) []Attribute {
	attributes := make([]Attribute, p)
	for i := range attributes {
		attributes[i] = Attribute{Name: fmt.Sprintf("V%d", i+1), Kind: Numeric}
	}
	return attributes
}

//schemaEntry is one attribute record of a YAML schema file.
type schemaEntry struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Values []string `yaml:"values"`
}

//ReadSchema loads an attribute schema from a YAML file. The file is a list
//of entries with a name, a kind ("numeric" or "nominal") and, for nominal
//attributes, the category names in encoding order.
func ReadSchema(filename string) ([]Attribute, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var entries []schemaEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("schema %s: %w", filename, err)
	}

	attributes := make([]Attribute, 0, len(entries))
	for i, entry := range entries {
		switch entry.Kind {
		case "numeric", "":
			attributes = append(attributes, Attribute{Name: entry.Name, Kind: Numeric})
		case "nominal":
			if len(entry.Values) < 2 {
				return nil, fmt.Errorf("schema %s: nominal attribute %q needs at least two values", filename, entry.Name)
			}
			attributes = append(attributes, Attribute{Name: entry.Name, Kind: Nominal, Values: entry.Values})
		default:
			return nil, fmt.Errorf("schema %s: attribute %d has unknown kind %q", filename, i, entry.Kind)
		}
	}
	return attributes, nil
}
