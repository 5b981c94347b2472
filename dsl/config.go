/*
 * Copyright 2021 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package dsl

import (
	"os"
	"strconv"
	"time"
)

// Config is the explicit, once-built settings struct threaded through
// the Builder and Runner (spec §9 "Global-ish settings... an explicit
// config struct built once at start and threaded through
// constructors"), replacing ad hoc environment lookups scattered
// through the engine.
type Config struct {
	// DefaultTimeout is the per-actor default deadline (spec §6
	// DEFAULT_TIMEOUT, spec §3 "default 3600").
	DefaultTimeout time.Duration

	// SkipDry, when true, skips the rehearsal pass (spec §6 SKIP_DRY,
	// spec §4.9 step 2).
	SkipDry bool
}

// DefaultDefaultTimeout is spec §3's "default 3600" seconds.
const DefaultDefaultTimeout = 3600 * time.Second

// ConfigFromEnv builds a Config from the process environment, reading
// exactly the two variables spec §6 documents as consumed by the core.
func ConfigFromEnv() *Config {
	cfg := &Config{DefaultTimeout: DefaultDefaultTimeout}

	if s := os.Getenv("DEFAULT_TIMEOUT"); s != "" {
		if secs, err := strconv.ParseFloat(s, 64); err == nil && secs >= 0 {
			cfg.DefaultTimeout = time.Duration(secs * float64(time.Second))
		}
	}

	if s := os.Getenv("SKIP_DRY"); s != "" {
		cfg.SkipDry = truthy(s)
	}

	return cfg
}
