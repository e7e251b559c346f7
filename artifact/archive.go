//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	archive "github.com/moby/go-archive"

	"github.com/promptcheck/promptcheck/log"
)

// Entry is one text file pulled out of an artifact bundle.
type Entry struct {
	// Name is the path of the entry inside the bundle.
	Name string
	// Content holds the entry text, truncated at the ceiling.
	Content string
	// Truncated reports whether Content was cut at the ceiling.
	Truncated bool
}

// ArchiveOptions bounds what ReadArchive is willing to buffer.
type ArchiveOptions struct {
	// MaxContentLen is the per-entry content ceiling in bytes.
	// Zero means DefaultMaxContentLen.
	MaxContentLen int
	// TextPatterns are the glob patterns an entry must match to be read.
	// Nil means DefaultTextPatterns.
	TextPatterns []string
}

func (o ArchiveOptions) maxLen() int {
	if o.MaxContentLen > 0 {
		return o.MaxContentLen
	}
	return DefaultMaxContentLen
}

func (o ArchiveOptions) patterns() []string {
	if o.TextPatterns != nil {
		return o.TextPatterns
	}
	return DefaultTextPatterns
}

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ReadArchive unpacks a downloaded bundle and returns its text entries.
// Zip and tar (optionally compressed) layouts are supported. Entries that do
// not match the text allow-list are drained without buffering, so a crafted
// archive cannot force the whole bundle into memory.
func ReadArchive(r io.Reader, opts ArchiveOptions) ([]Entry, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zipMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("sniff archive header: %w", err)
	}
	if bytes.Equal(head, zipMagic) {
		return readZip(br, opts)
	}
	return readTar(br, opts)
}

// readZip spools the stream to a temporary file to gain the random access
// the zip layout needs, then reads only the allow-listed entries.
func readZip(r io.Reader, opts ArchiveOptions) ([]Entry, error) {
	tmp, err := os.CreateTemp("", "promptcheck-bundle-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("spool zip bundle: %w", err)
	}
	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("open zip bundle: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !matchesText(f.Name, opts.patterns()) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			log.Warnf("skipping unreadable zip entry %s: %v", f.Name, err)
			continue
		}
		entry, err := readEntry(f.Name, rc, opts.maxLen())
		rc.Close()
		if err != nil {
			log.Warnf("skipping zip entry %s: %v", f.Name, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// readTar streams a (possibly compressed) tar bundle. Allow-listed entries
// are buffered up to the ceiling; everything else is drained to /dev/null.
func readTar(r io.Reader, opts ArchiveOptions) ([]Entry, error) {
	dr, err := archive.DecompressStream(r)
	if err != nil {
		return nil, fmt.Errorf("decompress bundle: %w", err)
	}
	defer dr.Close()

	tr := tar.NewReader(dr)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("read tar bundle: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if !matchesText(hdr.Name, opts.patterns()) {
			// Drain, never buffer, entries outside the allow-list.
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return entries, fmt.Errorf("drain tar entry %s: %w", hdr.Name, err)
			}
			continue
		}
		entry, err := readEntry(hdr.Name, tr, opts.maxLen())
		if err != nil {
			log.Warnf("skipping tar entry %s: %v", hdr.Name, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// readEntry reads at most limit bytes of content and drains the rest.
func readEntry(name string, r io.Reader, limit int) (Entry, error) {
	buf, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return Entry{}, err
	}
	truncated := false
	if n, _ := io.Copy(io.Discard, r); n > 0 {
		truncated = true
		buf = trimPartialRune(buf)
		log.Warnf("entry %s exceeds %d bytes, truncated", name, limit)
	}
	return Entry{Name: path.Clean(name), Content: string(buf), Truncated: truncated}, nil
}

// trimPartialRune drops a multi-byte rune the byte ceiling cut in half, so
// truncated content stays valid UTF-8.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if r, size := utf8.DecodeRune(b[i:]); r == utf8.RuneError && size <= 1 {
			return b[:i]
		}
		return b
	}
	return b
}

func matchesText(name string, patterns []string) bool {
	name = path.Clean(name)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
