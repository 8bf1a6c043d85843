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
	"errors"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the optional knobs of the package. The zero-value-ish
// DefaultConfig is valid everywhere a *Config is accepted.
type Config struct {
	// ShmRoot overrides the directory backing shared objects. Empty selects
	// the platform default. Tests point this at a private temp dir.
	ShmRoot string

	// Tracer, when set, wraps Create/Open in spans.
	Tracer trace.Tracer

	// Meter, when set, mirrors the package counters to OpenTelemetry
	// instruments.
	Meter metric.Meter

	// SweepWorkers bounds the pool used by SweepDir.
	SweepWorkers int

	otelOnce    sync.Once
	otelCreates metric.Int64Counter
	otelOpens   metric.Int64Counter
}

const defaultSweepWorkers = 4

// DefaultConfig returns the configuration used by the plain package
// functions.
func DefaultConfig() *Config {
	return &Config{SweepWorkers: defaultSweepWorkers}
}

// VerifyConfig checks a configuration before use.
func VerifyConfig(c *Config) error {
	if c == nil {
		return errors.New("memfile: nil config")
	}
	if c.SweepWorkers <= 0 {
		return errors.New("memfile: SweepWorkers must be positive")
	}
	return nil
}

func (c *Config) countCreate(ctx context.Context) {
	c.initTelemetry()
	if c.otelCreates != nil {
		c.otelCreates.Add(ctx, 1)
	}
}

func (c *Config) countOpen(ctx context.Context) {
	c.initTelemetry()
	if c.otelOpens != nil {
		c.otelOpens.Add(ctx, 1)
	}
}

func (c *Config) initTelemetry() {
	c.otelOnce.Do(func() {
		if c.Meter == nil {
			return
		}
		var err error
		c.otelCreates, err = c.Meter.Int64Counter("memfile.creates")
		if err != nil {
			internalLogger.Warnf("otel counter memfile.creates: %v", err)
		}
		c.otelOpens, err = c.Meter.Int64Counter("memfile.opens")
		if err != nil {
			internalLogger.Warnf("otel counter memfile.opens: %v", err)
		}
	})
}
