// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata reads embedded tags of local media files into the
// upper-case key map players expose (TITLE, ARTIST, ...).
package metadata

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// ErrNoTags is returned for files without a recognised tag block.
var ErrNoTags = errors.New("no tags found")

// Reader reads tags from local files.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

// Read opens path and returns its tags. A file without tags yields ErrNoTags.
func (r *Reader) Read(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, ErrNoTags
		}
		return nil, fmt.Errorf("read tags %s: %w", path, err)
	}
	return FromTag(m), nil
}

// FromTag converts parsed tags; empty fields are omitted.
func FromTag(m tag.Metadata) map[string][]string {
	out := make(map[string][]string)
	put := func(key, v string) {
		v = strings.TrimSpace(v)
		if v != "" {
			out[key] = append(out[key], v)
		}
	}
	put("TITLE", m.Title())
	put("ARTIST", m.Artist())
	put("ALBUM", m.Album())
	put("ALBUMARTIST", m.AlbumArtist())
	put("COMPOSER", m.Composer())
	put("GENRE", m.Genre())
	put("DESCRIPTION", m.Comment())
	if y := m.Year(); y > 0 {
		put("DATE", strconv.Itoa(y))
	}
	if n, _ := m.Track(); n > 0 {
		put("TRACKNUMBER", strconv.Itoa(n))
	}
	if n, _ := m.Disc(); n > 0 {
		put("DISCNUMBER", strconv.Itoa(n))
	}
	return out
}

// Merge adds src values to dst, skipping values dst already holds for a key.
func Merge(dst, src map[string][]string) bool {
	changed := false
	for k, vals := range src {
		for _, v := range vals {
			if contains(dst[k], v) {
				continue
			}
			dst[k] = append(dst[k], v)
			changed = true
		}
	}
	return changed
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
