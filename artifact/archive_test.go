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
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return &buf
}

func buildTarGz(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return &buf
}

func entryByName(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func TestReadArchiveZip(t *testing.T) {
	buf := buildZip(t, map[string]string{
		"prompts/greeting.txt": "You are a helpful assistant.",
		"results/score.json":   `{"prompt":"Summarize the input."}`,
		"binary/model.bin":     "\x00\x01\x02",
	})

	entries, err := ReadArchive(buf, ArchiveOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got, ok := entryByName(entries, "prompts/greeting.txt")
	require.True(t, ok)
	assert.Equal(t, "You are a helpful assistant.", got.Content)
	assert.False(t, got.Truncated)

	_, ok = entryByName(entries, "binary/model.bin")
	assert.False(t, ok)
}

func TestReadArchiveTarGz(t *testing.T) {
	buf := buildTarGz(t, map[string]string{
		"eval/prompt.md": "# Task\nSummarize in 3 bullets.",
		"eval/raw.log":   strings.Repeat("x", 2048),
	})

	entries, err := ReadArchive(buf, ArchiveOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "eval/prompt.md", entries[0].Name)
	assert.Equal(t, "# Task\nSummarize in 3 bullets.", entries[0].Content)
}

func TestReadArchiveTruncatesAtCeiling(t *testing.T) {
	long := strings.Repeat("a", 100)
	buf := buildZip(t, map[string]string{"prompt.txt": long})

	entries, err := ReadArchive(buf, ArchiveOptions{MaxContentLen: 64})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Content, 64)
	assert.True(t, entries[0].Truncated)
}

func TestReadArchiveTruncationKeepsValidUTF8(t *testing.T) {
	// Three-byte runes arranged so the 64-byte ceiling lands mid-rune.
	content := strings.Repeat("a", 62) + "世世"
	buf := buildZip(t, map[string]string{"prompt.txt": content})

	entries, err := ReadArchive(buf, ArchiveOptions{MaxContentLen: 64})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Truncated)
	assert.True(t, utf8.ValidString(entries[0].Content))
	assert.Equal(t, strings.Repeat("a", 62), entries[0].Content)
}

func TestReadArchiveCustomPatterns(t *testing.T) {
	buf := buildZip(t, map[string]string{
		"a.txt":    "text",
		"b.prompt": "prompt",
	})

	entries, err := ReadArchive(buf, ArchiveOptions{TextPatterns: []string{"**/*.prompt"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.prompt", entries[0].Name)
}

func TestReadArchiveGarbageInput(t *testing.T) {
	_, err := ReadArchive(strings.NewReader("not an archive at all"), ArchiveOptions{})
	assert.Error(t, err)
}

func TestMatchesKeyword(t *testing.T) {
	assert.True(t, MatchesKeyword("prompt-bundle", DefaultKeywords))
	assert.True(t, MatchesKeyword("Nightly-Evaluation-Run", DefaultKeywords))
	assert.True(t, MatchesKeyword("drift_report", DefaultKeywords))
	assert.False(t, MatchesKeyword("coverage", DefaultKeywords))
	assert.False(t, MatchesKeyword("prompt", nil))
}
