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

	"github.com/stretchr/testify/suite"
)

type MemFileTestSuite struct {
	suite.Suite
	cfg     *Config
	linkDir string
}

func (s *MemFileTestSuite) SetupTest() {
	s.cfg = DefaultConfig()
	s.cfg.ShmRoot = s.T().TempDir()
	s.linkDir = s.T().TempDir()
}

func (s *MemFileTestSuite) link(name string) string {
	return filepath.Join(s.linkDir, name)
}

func (s *MemFileTestSuite) create(name string, kind LockKind, size int) *MemFile {
	mf, err := CreateWithConfig(context.Background(), s.cfg, s.link(name), kind, size)
	s.Require().NoError(err)
	return mf
}

func (s *MemFileTestSuite) TestCreateOpenRoundtrip() {
	for _, kind := range []LockKind{LockNone, LockMutex, LockRW} {
		mf := s.create("rt_"+kind.String()+".link", kind, 4096)

		att, err := OpenWithConfig(context.Background(), s.cfg, s.link("rt_"+kind.String()+".link"))
		s.Require().NoError(err)

		s.Equal(4096, att.Size())
		s.Equal(mf.Identifier(), att.Identifier())
		s.Equal(kind, att.Kind())
		s.False(att.IsOwner())
		s.True(mf.IsOwner())

		s.Require().NoError(att.Close())
		s.Require().NoError(mf.Close())
	}
}

func (s *MemFileTestSuite) TestCreateOnExistingLinkLeavesEverythingUntouched() {
	path := s.link("busy.link")
	s.Require().NoError(os.WriteFile(path, []byte("someone else's link"), 0o644))

	_, err := CreateWithConfig(context.Background(), s.cfg, path, LockMutex, 4096)
	s.Require().ErrorIs(err, ErrAlreadyExists)

	got, rerr := os.ReadFile(path)
	s.Require().NoError(rerr)
	s.Equal([]byte("someone else's link"), got)

	entries, rerr := os.ReadDir(s.cfg.ShmRoot)
	s.Require().NoError(rerr)
	s.Empty(entries, "no shared object may be created when the link create fails")
}

func (s *MemFileTestSuite) TestOwnerTeardownRemovesLink() {
	mf := s.create("owned.link", LockMutex, 256)

	att, err := OpenWithConfig(context.Background(), s.cfg, s.link("owned.link"))
	s.Require().NoError(err)

	s.Require().NoError(att.Close())
	s.FileExists(s.link("owned.link"), "attacher close must keep the link")

	s.Require().NoError(mf.Close())
	s.NoFileExists(s.link("owned.link"), "owner close must remove the link")
}

func (s *MemFileTestSuite) TestRawModeNeverTouchesLinkDir() {
	mf, err := CreateRawWithConfig(context.Background(), s.cfg, "interop_region", 512)
	s.Require().NoError(err)

	entries, rerr := os.ReadDir(s.linkDir)
	s.Require().NoError(rerr)
	s.Empty(entries)

	_, ok := mf.LinkPath()
	s.False(ok)
	s.Equal(LockNone, mf.Kind())

	att, err := OpenRawWithConfig(context.Background(), s.cfg, "interop_region")
	s.Require().NoError(err)
	s.Equal(512, att.Size())
	s.Equal(LockNone, att.Kind())

	s.Require().NoError(att.Close())
	s.Require().NoError(mf.Close())
}

func (s *MemFileTestSuite) TestRawIdentifierWithReservedSuffix() {
	// ".mx"/".rw" suffixes announce a lock header; a raw mapping has none,
	// so an attach through such a name is refused rather than handing out
	// garbage lock state.
	mf, err := CreateRawWithConfig(context.Background(), s.cfg, "foreign.mx", 256)
	s.Require().NoError(err)
	defer func() { _ = mf.Close() }()

	_, err = OpenRawWithConfig(context.Background(), s.cfg, "foreign.mx")
	s.Require().ErrorIs(err, ErrBackend)
}

func (s *MemFileTestSuite) TestRawDoubleCreateFails() {
	mf, err := CreateRawWithConfig(context.Background(), s.cfg, "dup_region", 64)
	s.Require().NoError(err)
	defer func() { _ = mf.Close() }()

	_, err = CreateRawWithConfig(context.Background(), s.cfg, "dup_region", 64)
	s.Require().ErrorIs(err, ErrAlreadyExists)
}

func (s *MemFileTestSuite) TestEndToEndVisibility() {
	creator := s.create("e2e.link", LockMutex, 4096)
	attacher, err := OpenWithConfig(context.Background(), s.cfg, s.link("e2e.link"))
	s.Require().NoError(err)

	payload := []byte("hello\x00")

	w, err := WriteLockSlice[byte](creator)
	s.Require().NoError(err)
	copy(w.Slice(), payload)
	w.Release()

	r, err := WriteLockSlice[byte](attacher)
	s.Require().NoError(err)
	s.Equal(payload, r.Slice()[:len(payload)])
	r.Release()

	s.Require().NoError(attacher.Close())
	s.Require().NoError(creator.Close())
}

func (s *MemFileTestSuite) TestCloseIsExplicitAndOnce() {
	mf := s.create("close.link", LockNone, 64)
	s.Require().NoError(mf.Close())
	s.Require().ErrorIs(mf.Close(), ErrClosed)

	_, err := mf.Bytes()
	s.Require().ErrorIs(err, ErrClosed)
}

func (s *MemFileTestSuite) TestOpenMissingLink() {
	_, err := OpenWithConfig(context.Background(), s.cfg, s.link("ghost.link"))
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *MemFileTestSuite) TestCreateRejectsBadSize() {
	_, err := CreateWithConfig(context.Background(), s.cfg, s.link("bad.link"), LockMutex, 0)
	s.Require().ErrorIs(err, ErrBackend)
	s.NoFileExists(s.link("bad.link"), "failed create must not leave a link behind")
}

func (s *MemFileTestSuite) TestBadSizeRejectedBeforeLinkCreation() {
	// Size validation runs before the link file is touched, so a bad size
	// reports the size problem even when the link path happens to be busy,
	// and the pre-existing file survives untouched.
	path := s.link("busy_bad.link")
	s.Require().NoError(os.WriteFile(path, []byte("occupied"), 0o644))

	_, err := CreateWithConfig(context.Background(), s.cfg, path, LockMutex, 0)
	s.Require().ErrorIs(err, ErrBackend)
	s.Require().NotErrorIs(err, ErrAlreadyExists)

	got, rerr := os.ReadFile(path)
	s.Require().NoError(rerr)
	s.Equal([]byte("occupied"), got)

	_, err = CreateRawWithConfig(context.Background(), s.cfg, "bad_raw", -4)
	s.Require().ErrorIs(err, ErrBackend)
}

func (s *MemFileTestSuite) TestBytesIsTheRawView() {
	mf := s.create("raw_view.link", LockNone, 32)
	defer func() { _ = mf.Close() }()

	b, err := mf.Bytes()
	s.Require().NoError(err)
	s.Len(b, 32)
	copy(b, "abc")

	att, err := OpenWithConfig(context.Background(), s.cfg, s.link("raw_view.link"))
	s.Require().NoError(err)
	defer func() { _ = att.Close() }()

	b2, err := att.Bytes()
	s.Require().NoError(err)
	s.Equal([]byte("abc"), b2[:3])
}

func (s *MemFileTestSuite) TestDebugString() {
	mf := s.create("dbg.link", LockRW, 128)
	defer func() { _ = mf.Close() }()

	out := mf.DebugString()
	s.Contains(out, mf.Identifier())
	s.Contains(out, "owner:true")
	s.Contains(out, "kind:rwlock")
}

func TestMemFileTestSuite(t *testing.T) {
	suite.Run(t, new(MemFileTestSuite))
}
