/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const builtinCategory = "cuisines"

var builtinCuisines = []string{
	"Italian",
	"Japanese",
	"Mexican",
	"French",
	"Georgian",
	"Indian",
	"Chinese",
	"Thai",
	"American",
	"Russian",
	"Mediterranean",
	"Vegetarian",
	"Steakhouse",
	"Pizzeria",
	"Sushi bar",
	"Burger joint",
	"Coffee shop",
	"Pasta bar",
	"Seafood",
	"Home cooking",
}

// Catalog is the source of decks, keyed by category.
type Catalog struct {
	mu         sync.RWMutex
	categories map[string][]Card
}

type CategoryInfo struct {
	Key       string `json:"key"`
	CardCount int    `json:"cardCount"`
}

func newCatalog() *Catalog {
	c := &Catalog{
		categories: make(map[string][]Card),
	}

	cards := make([]Card, 0, len(builtinCuisines))
	for _, name := range builtinCuisines {
		raw, _ := json.Marshal(name)
		cards = append(cards, raw)
	}
	c.categories[builtinCategory] = cards

	return c
}

// catalogFile is the on-disk shape of a catalog.
type catalogFile struct {
	Categories map[string][]any `json:"categories" yaml:"categories" toml:"categories"`
}

// loadCatalog returns the built-in catalog merged with any categories
// defined under the "categories" key of the file at path.
//
// viper checks that the file exists and parses in a supported format, but
// it folds map keys to lower case, so the cards themselves are decoded with
// the format's own decoder.
func loadCatalog(path string) (*Catalog, error) {
	c := newCatalog()
	if path == "" {
		return c, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	if !v.IsSet("categories") {
		return nil, fmt.Errorf("catalog %s defines no categories", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	file, err := decodeCatalog(strings.TrimPrefix(filepath.Ext(path), "."), data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("catalog %s defines no categories", path)
	}

	for key, items := range file.Categories {
		if err := c.set(key, items); err != nil {
			return nil, fmt.Errorf("catalog %s: category %q: %w", path, key, err)
		}
	}

	return c, nil
}

func decodeCatalog(format string, data []byte) (catalogFile, error) {
	var file catalogFile

	var err error
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&file)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &file)
	case "toml":
		err = toml.Unmarshal(data, &file)
	default:
		return file, fmt.Errorf("unsupported format %q", format)
	}

	return file, err
}

func (c *Catalog) set(key string, items []any) error {
	if len(items) == 0 {
		return invalid("category", "must contain at least one card")
	}

	cards := make([]Card, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		cards = append(cards, raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories[key] = cards

	return nil
}

// Deck returns a copy of the cards in category key.
func (c *Catalog) Deck(key string) ([]Card, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cards, ok := c.categories[key]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", key, ErrNotFound)
	}

	return slices.Clone(cards), nil
}

func (c *Catalog) Categories() []CategoryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]CategoryInfo, 0, len(c.categories))
	for key, cards := range c.categories {
		infos = append(infos, CategoryInfo{Key: key, CardCount: len(cards)})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Key < infos[j].Key
	})

	return infos
}
