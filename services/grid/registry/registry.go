// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry carries the catalogue of search operators the grid can
// dispatch raw actions to. The catalogue ships embedded and can be replaced
// from a file at startup.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed operators.yaml
var embeddedCatalogue []byte

// Descriptor describes one search operator.
type Descriptor struct {
	ID          string `yaml:"id" json:"id"`
	Category    string `yaml:"category" json:"category"`
	Status      string `yaml:"status" json:"status"`
	Description string `yaml:"description" json:"description"`
}

// Registry is a read-only operator catalogue. Build it once at startup and
// share it; lookups take no locks.
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

type catalogueFile struct {
	Operators []Descriptor `yaml:"operators"`
}

// Load builds the registry from the embedded catalogue.
func Load() (*Registry, error) {
	return parse(embeddedCatalogue)
}

// LoadFile builds the registry from a catalogue file on disk.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operator catalogue: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Registry, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse operator catalogue: %w", err)
	}
	r := &Registry{byID: make(map[string]Descriptor, len(f.Operators))}
	for _, d := range f.Operators {
		if d.ID == "" {
			return nil, fmt.Errorf("operator catalogue entry missing id")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate operator id %q", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// All returns every descriptor in catalogue order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Get looks one operator up by id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByCategory returns the descriptors of one category, sorted by id.
func (r *Registry) ByCategory(category string) []Descriptor {
	var out []Descriptor
	for _, d := range r.byID {
		if d.Category == category {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
