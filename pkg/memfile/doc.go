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

// Package memfile shares a region of memory between unrelated processes and
// synchronizes access to it through a lock living inside the region itself.
//
// OS shared-memory names are global and collision-prone, so memfile never
// asks the caller for one. Create picks a fresh OS identifier and records it
// in a small "link" file at a caller-chosen path; Open reads that file and
// attaches. Two independently launched instances of the same binary can use
// the same relative link path from different directories without colliding.
//
// Creator:
//
//	mf, err := memfile.Create("shared_mem.link", memfile.LockMutex, 4096)
//	if err != nil { ... }
//	defer mf.Close()
//
//	g, err := memfile.WriteLockSlice[byte](mf)
//	if err != nil { ... }
//	copy(g.Slice(), "some string you want to share\x00")
//	g.Release()
//
// Attacher, in another process:
//
//	mf, err := memfile.Open("shared_mem.link")
//	if err != nil { ... }
//	defer mf.Close()
//
//	g, err := memfile.ReadLockSlice[byte](mf)
//	if err != nil { ... }
//	// read g.Slice()
//	g.Release()
//
// The creator owns the mapping: its teardown removes the link file and
// destroys the OS object. Attachers only detach. Teardown happens at Close,
// or as a logged best effort when a handle is garbage collected.
//
// All operations are synchronous and block the calling goroutine; lock
// acquisition has no timeout and no cancellation. If a lock holder dies the
// lock stays held — there is no robust-mutex recovery.
package memfile
