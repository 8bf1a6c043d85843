/*
 * Copyright 2026 The memfile Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLinkNeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.link")
	require.NoError(t, os.WriteFile(path, []byte("precious"), 0o644))

	_, err := createLink(path)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("precious"), got)
}

func TestPersistAndResolveIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.link")
	f, err := createLink(path)
	require.NoError(t, err)

	require.NoError(t, persistIdentifier(f, "memfile_00ddba11.mx"))
	require.NoError(t, f.Close())

	id, err := resolveIdentifier(path)
	require.NoError(t, err)
	assert.Equal(t, "memfile_00ddba11.mx", id)
}

// shortWriter accepts at most n bytes per call and then reports err.
type shortWriter struct {
	n   int
	err error
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.n >= len(p) {
		return len(p), w.err
	}
	return w.n, w.err
}

func TestPersistIdentifierClassifiesShortWrites(t *testing.T) {
	const id = "memfile_00ddba11.mx"

	// Bytes lost, no error reported: the link is truncated.
	err := persistIdentifier(&shortWriter{n: 5}, id)
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.NotErrorIs(t, err, ErrIO)

	// Bytes lost with an error: still a partial persist, the cause rides
	// along in the message.
	err = persistIdentifier(&shortWriter{n: 5, err: errors.New("no space left on device")}, id)
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.NotErrorIs(t, err, ErrIO)

	// Everything written but the writer failed afterwards: plain i/o.
	err = persistIdentifier(&shortWriter{n: len(id), err: errors.New("input/output error")}, id)
	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrPartialWrite)

	assert.NoError(t, persistIdentifier(&shortWriter{n: len(id)}, id))
}

func TestResolveIdentifierMissing(t *testing.T) {
	_, err := resolveIdentifier(filepath.Join(t.TempDir(), "nope.link"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveIdentifierDecodeErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.link")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := resolveIdentifier(empty)
	assert.ErrorIs(t, err, ErrDecode)

	binary := filepath.Join(dir, "binary.link")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x80}, 0o644))
	_, err = resolveIdentifier(binary)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRemoveLinkIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.link")
	require.NoError(t, os.WriteFile(path, []byte("id"), 0o644))

	assert.NoError(t, removeLink(path))
	assert.NoError(t, removeLink(path))
	assert.NoFileExists(t, path)
}

func TestRemoveLinkSkipsNonRegularFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, os.Mkdir(dir, 0o755))

	assert.NoError(t, removeLink(dir))
	assert.DirExists(t, dir)
}
