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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"

	"github.com/memfile/memfile/internal/shm"
)

// Creation is all-or-nothing, but a process that dies between backend
// create and link teardown still leaves a dangling link behind. SweepDir is
// the janitor for a directory of link files: it removes every "*.link" file
// whose identifier no longer resolves to a live shared object, and every
// corrupt one. Links whose objects are owned by this process, or still
// resolve, are left alone.

const linkSuffix = ".link"

// SweepDir sweeps dir with the default configuration and reports how many
// link files were removed.
func SweepDir(dir string) (int, error) {
	return SweepDirWithConfig(DefaultConfig(), dir)
}

// SweepDirWithConfig is SweepDir with an explicit Config.
func SweepDirWithConfig(cfg *Config, dir string) (int, error) {
	if err := VerifyConfig(cfg); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: read dir %q: %v", ErrIO, dir, err)
	}

	q := queuepkg.New(int64(len(entries) + cfg.SweepWorkers))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), linkSuffix) {
			_ = q.Put(filepath.Join(dir, e.Name()))
		}
	}
	// One stop token per worker.
	for i := 0; i < cfg.SweepWorkers; i++ {
		_ = q.Put(nil)
	}

	pool, err := ants.NewPool(cfg.SweepWorkers)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep pool: %v", ErrBackend, err)
	}
	defer pool.Release()

	var removed int64
	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for {
			items, err := q.Get(1)
			if err != nil || len(items) == 0 || items[0] == nil {
				return
			}
			if sweepLink(cfg, items[0].(string)) {
				atomic.AddInt64(&removed, 1)
			}
		}
	}
	for i := 0; i < cfg.SweepWorkers; i++ {
		wg.Add(1)
		if err := pool.Submit(worker); err != nil {
			worker()
		}
	}
	wg.Wait()
	return int(atomic.LoadInt64(&removed)), nil
}

func sweepLink(cfg *Config, path string) bool {
	identifier, err := resolveIdentifier(path)
	switch {
	case err == nil:
	case isDecodeErr(err):
		// Corrupt link: nothing can ever open it again.
		internalLogger.Infof("sweeping corrupt link %q", path)
		return removeLink(path) == nil
	default:
		internalLogger.Warnf("sweep: cannot read link %q: %v", path, err)
		return false
	}
	if ownedByThisProcess(identifier) {
		return false
	}
	if backendExists(cfg.ShmRoot, identifier) {
		return false
	}
	internalLogger.Infof("sweeping dangling link %q -> %q", path, identifier)
	return removeLink(path) == nil
}

func isDecodeErr(err error) bool {
	return errors.Is(err, ErrDecode)
}

func backendExists(root, identifier string) bool {
	return shm.Exists(root, identifier)
}
