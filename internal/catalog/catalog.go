// Package catalog holds the product dictionary recommendations are drawn from.
//
// The catalog is loaded once at startup, from the embedded products.yaml by
// default, an operator supplied YAML file, or a Postgres table, and is
// read-only afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var embedded []byte

// Product is one catalog entry. When Variants is non-empty the variant names
// are what gets recommended.
type Product struct {
	Name        string   `yaml:"name" json:"-"`
	Variants    []string `yaml:"variants" json:"variants"`
	Description string   `yaml:"description" json:"description"`
	PairsWith   []string `yaml:"pairs_with" json:"pairs_with,omitempty"`
	// ComboOnly products are only recommended together with a pairing.
	ComboOnly bool `yaml:"combo_only" json:"combo_only,omitempty"`
}

type Catalog struct {
	Products []Product `yaml:"products"`

	byName map[string]int
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a catalog from products already in memory.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{Products: products}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEmbedded returns the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

func (c *Catalog) index() error {
	if len(c.Products) == 0 {
		return fmt.Errorf("catalog has no products")
	}
	c.byName = make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("catalog product %d has no name", i)
		}
		key := strings.ToLower(name)
		if _, dup := c.byName[key]; dup {
			return fmt.Errorf("catalog product %q is listed twice", name)
		}
		c.byName[key] = i
	}
	for _, p := range c.Products {
		for _, other := range p.PairsWith {
			if _, ok := c.byName[strings.ToLower(other)]; !ok {
				return fmt.Errorf("catalog product %q pairs with unknown product %q", p.Name, other)
			}
		}
	}
	return nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.Products)
}

// Names returns product names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Products))
	for i, p := range c.Products {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a product by name, ignoring case.
func (c *Catalog) Lookup(name string) (Product, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Product{}, false
	}
	return c.Products[i], true
}

// Dictionary returns the catalog keyed by product name, the shape the
// inference prompt embeds.
func (c *Catalog) Dictionary() map[string]Product {
	dict := make(map[string]Product, len(c.Products))
	for _, p := range c.Products {
		if p.Variants == nil {
			p.Variants = []string{}
		}
		dict[p.Name] = p
	}
	return dict
}
