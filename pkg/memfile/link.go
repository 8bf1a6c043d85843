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
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
)

// A link file is the on-disk indirection between a caller-chosen path and
// the OS identifier of a shared object. Its entire content is the UTF-8
// identifier, no header, no delimiter. Pure filesystem logic; nothing here
// touches the backend.

// createLink creates an empty link file. It never overwrites: an existing
// file at the path is ErrAlreadyExists.
func createLink(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: link %q", ErrAlreadyExists, path)
		}
		return nil, fmt.Errorf("%w: create link %q: %v", ErrIO, path, err)
	}
	return f, nil
}

// persistIdentifier writes the identifier as the complete link contents. A
// short write is reported as ErrPartialWrite, distinct from ErrIO, whatever
// error accompanied it: the link on disk is now truncated and a later Open
// would attach to a garbled identifier. ErrIO covers failures where no byte
// count was lost, such as a write rejected outright.
func persistIdentifier(w io.Writer, identifier string) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(identifier)

	n, err := w.Write(buf.Bytes())
	if n < buf.Len() {
		if err != nil {
			return fmt.Errorf("%w: wrote %d of %d bytes: %v", ErrPartialWrite, n, buf.Len(), err)
		}
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrPartialWrite, n, buf.Len())
	}
	if err != nil {
		return fmt.Errorf("%w: persist identifier: %v", ErrIO, err)
	}
	return nil
}

// resolveIdentifier reads a link file back into an identifier string.
func resolveIdentifier(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: link %q", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: read link %q: %v", ErrIO, path, err)
	}
	if len(b) == 0 || !utf8.Valid(b) {
		return "", fmt.Errorf("%w: link %q", ErrDecode, path)
	}
	return string(b), nil
}

// removeLink deletes a link file if it still names a regular file.
// Already-removed is not an error; only the owning handle's teardown calls
// this.
func removeLink(path string) error {
	st, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: stat link %q: %v", ErrIO, path, err)
	}
	if !st.Mode().IsRegular() {
		internalLogger.Warnf("not removing link %q: not a regular file", path)
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: remove link %q: %v", ErrIO, path, err)
	}
	return nil
}
