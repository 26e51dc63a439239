// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package devices holds the read-only catalog of output devices nodes may
// bind to. A Catalog is a snapshot: it is built once from configuration and
// passed to whoever needs it, never mutated in place.
package devices

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrDuplicateDevice = errors.New("duplicate device id")
	ErrNoElement       = errors.New("device has no element kind")
)

// Kind is the media kind a device renders.
type Kind int

const (
	Audio Kind = iota
	Video
)

func (k Kind) String() string {
	if k == Video {
		return "video"
	}
	return "audio"
}

// Device is one selectable output.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Element is the engine element kind that renders to this device.
	Element string `json:"element"`
	Kind    Kind   `json:"-"`
	Default bool   `json:"default,omitempty"`
}

// Catalog is an immutable set of devices per kind.
type Catalog struct {
	byKind map[Kind][]Device
}

// NewCatalog validates and indexes devices. Device ids must be unique per kind.
func NewCatalog(list ...Device) (*Catalog, error) {
	c := &Catalog{byKind: make(map[Kind][]Device)}
	seen := make(map[Kind]map[string]bool)
	for _, d := range list {
		if d.Element == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoElement, d.ID)
		}
		if seen[d.Kind] == nil {
			seen[d.Kind] = make(map[string]bool)
		}
		if seen[d.Kind][d.ID] {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateDevice, d.Kind, d.ID)
		}
		seen[d.Kind][d.ID] = true
		c.byKind[d.Kind] = append(c.byKind[d.Kind], d)
	}
	for k := range c.byKind {
		list := c.byKind[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return c, nil
}

// List returns a copy of the devices of kind, sorted by id.
func (c *Catalog) List(kind Kind) []Device {
	return append([]Device(nil), c.byKind[kind]...)
}

func (c *Catalog) Lookup(kind Kind, id string) (Device, error) {
	for _, d := range c.byKind[kind] {
		if d.ID == id {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s/%s", ErrUnknownDevice, kind, id)
}

// Default returns the device flagged default, else the first one.
func (c *Catalog) Default(kind Kind) (Device, bool) {
	list := c.byKind[kind]
	if len(list) == 0 {
		return Device{}, false
	}
	for _, d := range list {
		if d.Default {
			return d, true
		}
	}
	return list[0], true
}

// Fallback is the device used when the catalog offers none of kind.
func Fallback(kind Kind) Device {
	if kind == Video {
		return Device{ID: "auto", Name: "Automatic", Element: "autovideosink", Kind: Video}
	}
	return Device{ID: "auto", Name: "Automatic", Element: "autoaudiosink", Kind: Audio}
}

// Resolve picks id from the catalog, the default device when id is empty,
// or Fallback when the catalog has no device of kind.
func (c *Catalog) Resolve(kind Kind, id string) (Device, error) {
	if id != "" {
		return c.Lookup(kind, id)
	}
	if d, ok := c.Default(kind); ok {
		return d, nil
	}
	return Fallback(kind), nil
}
