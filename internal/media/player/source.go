// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
)

// ErrInvalidSource is returned when a source has no playable location.
var ErrInvalidSource = errors.New("invalid source")

type SourceKind int

const (
	SourceInvalid SourceKind = iota
	SourceEmpty
	SourceLocalFile
	SourceURL
	SourceDisc
	SourceStream
)

func (k SourceKind) String() string {
	switch k {
	case SourceEmpty:
		return "empty"
	case SourceLocalFile:
		return "file"
	case SourceURL:
		return "url"
	case SourceDisc:
		return "disc"
	case SourceStream:
		return "stream"
	default:
		return "invalid"
	}
}

func (k SourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SourceKind) UnmarshalText(b []byte) error {
	for c := SourceInvalid; c <= SourceStream; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, b)
}

type DiscType int

const (
	DiscNone DiscType = iota
	DiscAudioCD
	DiscDVD
	DiscVCD
)

func (d DiscType) String() string {
	switch d {
	case DiscAudioCD:
		return "cd"
	case DiscDVD:
		return "dvd"
	case DiscVCD:
		return "vcd"
	default:
		return "none"
	}
}

func (d DiscType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DiscType) UnmarshalText(b []byte) error {
	for c := DiscNone; c <= DiscVCD; c++ {
		if c.String() == string(b) {
			*d = c
			return nil
		}
	}
	return fmt.Errorf("%w: unknown disc type %q", ErrInvalidSource, b)
}

// Source describes what a MediaObject plays. The zero value is invalid.
type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location,omitempty"`
	Disc     DiscType   `json:"disc,omitempty"`
	Device   string     `json:"device,omitempty"`
}

func LocalFile(path string) Source { return Source{Kind: SourceLocalFile, Location: path} }

func URL(u string) Source { return Source{Kind: SourceURL, Location: u} }

func Disc(t DiscType, device string) Source { return Source{Kind: SourceDisc, Disc: t, Device: device} }

func Stream(name string) Source { return Source{Kind: SourceStream, Location: name} }

func Empty() Source { return Source{Kind: SourceEmpty} }

// Playable reports whether the source can be loaded at all.
func (s Source) Playable() bool {
	return s.Kind != SourceInvalid && s.Kind != SourceEmpty
}

// URI maps the source onto the engine's location syntax.
func (s Source) URI() (string, error) {
	switch s.Kind {
	case SourceLocalFile:
		if s.Location == "" {
			return "", fmt.Errorf("%w: empty path", ErrInvalidSource)
		}
		abs, err := filepath.Abs(s.Location)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidSource, err)
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	case SourceURL:
		u, err := url.Parse(s.Location)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidSource, err)
		}
		if u.Scheme == "" {
			return "", fmt.Errorf("%w: %q has no scheme", ErrInvalidSource, s.Location)
		}
		return u.String(), nil
	case SourceDisc:
		scheme := map[DiscType]string{DiscAudioCD: "cdda", DiscDVD: "dvd", DiscVCD: "vcd"}[s.Disc]
		if scheme == "" {
			return "", fmt.Errorf("%w: unknown disc type", ErrInvalidSource)
		}
		return scheme + "://" + s.Device, nil
	case SourceStream:
		if s.Location == "" {
			return "", fmt.Errorf("%w: unnamed stream", ErrInvalidSource)
		}
		return "appsrc://" + s.Location, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidSource, s.Kind)
	}
}

func (s Source) String() string {
	switch s.Kind {
	case SourceDisc:
		return s.Kind.String() + ":" + s.Disc.String()
	case SourceLocalFile, SourceURL, SourceStream:
		return s.Kind.String() + ":" + s.Location
	default:
		return s.Kind.String()
	}
}
