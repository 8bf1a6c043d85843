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
	"fmt"
	"reflect"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// A type placed in shared memory must be meaningful as raw bytes to every
// attaching process: no pointers reaching outside the region, no storage
// the type resizes itself, no initialization beyond the bytes themselves.
// Go cannot express that contract in the type system, so the guards enforce
// the checkable half at acquisition time: the type must be built purely
// from fixed-size scalars (every integer and float kind, bool, arrays and
// structs of those), and must fit the data section. Layout-equivalence of
// the remaining bytes across processes stays the caller's responsibility,
// exactly as with any two C programs sharing a struct.
//
// Rejected outright: pointers, unsafe.Pointer, strings, slices, maps,
// channels, funcs, interfaces, and any composite containing one.

var castCache = cmap.New[error]()

func checkCastable(t reflect.Type) error {
	key := t.String()
	if err, ok := castCache.Get(key); ok {
		return err
	}
	err := castableType(t)
	castCache.Set(key, err)
	return err
}

func castableType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		if err := castableType(t.Elem()); err != nil {
			return err
		}
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := castableType(t.Field(i).Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s contains %s", ErrInvalidCast, t, t.Kind())
	}
}
