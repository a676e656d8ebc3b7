package resolver

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Static resolves competitor URLs from an in-memory table keyed by product
// id. Brand and model are accepted for interface compatibility but the
// lookup is by id alone.
type Static struct {
	products map[string]map[string]string
}

// NewStatic creates a Static resolver from a productID → {competitor: url}
// table.
func NewStatic(products map[string]map[string]string) *Static {
	if products == nil {
		products = map[string]map[string]string{}
	}
	return &Static{products: products}
}

// staticFile is the YAML layout for a competitor table file:
//
//	products:
//	  "1":
//	    competitors:
//	      Lazada: https://www.lazada.sg/products/...
//	      Shopee: https://shopee.sg/...
type staticFile struct {
	Products map[string]struct {
		Competitors map[string]string `yaml:"competitors"`
	} `yaml:"products"`
}

// LoadStatic reads a competitor table from a YAML file.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: read table %s", path)
	}

	var file staticFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrapf(err, "resolver: parse table %s", path)
	}

	products := make(map[string]map[string]string, len(file.Products))
	for id, p := range file.Products {
		products[id] = p.Competitors
	}
	return NewStatic(products), nil
}

// Resolve returns the competitor URLs for the product. Unknown products
// resolve to an empty map: having no competitors on file is not a failure.
func (s *Static) Resolve(_ context.Context, productID, _, _ string) (map[string]string, error) {
	urls, ok := s.products[productID]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(urls))
	for k, v := range urls {
		out[k] = v
	}
	return out, nil
}
