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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepDirRemovesOnlyDanglingLinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShmRoot = t.TempDir()
	dir := t.TempDir()

	// Live: its object exists and this process owns it.
	live, err := CreateWithConfig(context.Background(), cfg, filepath.Join(dir, "live.link"), LockMutex, 64)
	require.NoError(t, err)
	defer func() { _ = live.Close() }()

	// Dangling: a plausible identifier whose object is gone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dangling.link"),
		[]byte("memfile_deadbeefdeadbeef.mx"), 0o644))

	// Corrupt: not a valid identifier at all.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.link"),
		[]byte{0xff, 0xfe, 0x00}, 0o644))

	// Not a link file: must never be considered.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("memfile_deadbeefdeadbeef.mx"), 0o644))

	removed, err := SweepDirWithConfig(cfg, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.FileExists(t, filepath.Join(dir, "live.link"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "dangling.link"))
	assert.NoFileExists(t, filepath.Join(dir, "corrupt.link"))
}

func TestSweepDirEmpty(t *testing.T) {
	removed, err := SweepDir(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweepDirMissing(t *testing.T) {
	_, err := SweepDir(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestSweepKeepsResolvableForeignLinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShmRoot = t.TempDir()
	dir := t.TempDir()

	// An object created by "another tool": present in the root but not
	// owned by any handle in this process.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ShmRoot, "foreign_region"), make([]byte, 32), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foreign.link"), []byte("foreign_region"), 0o644))

	removed, err := SweepDirWithConfig(cfg, dir)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, filepath.Join(dir, "foreign.link"))
}
