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

package misc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nextdoor/kingpin/dsl"
)

// durationValidator accepts either a Go number or a numeric string:
// phase-1-substituted values arrive as quoted document text (e.g.
// options:{sleep:"%T%"} substitutes to the string "0.1"), so a plain
// KindNumber check is too strict.
type durationValidator struct{}

func (durationValidator) Validate(v interface{}) error {
	_, err := toSeconds(v)
	return err
}

var sleepSchema = dsl.Schema{
	"sleep": dsl.OptionSpec{Kind: dsl.KindSelfValidating, Default: dsl.Required, Validator: durationValidator{}, Doc: "how long to sleep, in seconds"},
}

func init() {
	dsl.Registry.Register("kingpin.misc.Sleep", NewSleep, dsl.WithSchema(sleepSchema))
}

// Sleep pauses for a fixed duration. It skips the pause entirely in dry
// mode (spec's @dry convention: rehearsal never actually waits), and
// honors the enclosing Ctx's cancellation the way the teacher's own
// channel reads do.
type Sleep struct {
	Duration time.Duration
}

func NewSleep(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	clean, err := sleepSchema.Validate(options)
	if err != nil {
		return nil, err
	}
	secs, err := toSeconds(clean["sleep"])
	if err != nil {
		return nil, dsl.InvalidOptions("'sleep': %v", err)
	}
	return &Sleep{Duration: time.Duration(secs * float64(time.Second))}, nil
}

func toSeconds(v interface{}) (float64, error) {
	var secs float64
	switch x := v.(type) {
	case float64:
		secs = x
	case int:
		secs = float64(x)
	case int64:
		secs = float64(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("want a number, got %q", x)
		}
		secs = f
	default:
		return 0, fmt.Errorf("want a number, got %T", v)
	}
	if secs < 0 {
		return 0, fmt.Errorf("must be non-negative, got %v", secs)
	}
	return secs, nil
}

func (s *Sleep) DefaultDesc() string { return fmt.Sprintf("sleep %s", s.Duration) }

func (s *Sleep) Run(ctx *dsl.Ctx, dry bool) error {
	return dsl.Dry(ctx, dry, fmt.Sprintf("sleep for %s", s.Duration), func() error {
		timer := time.NewTimer(s.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return dsl.NewRecoverable(ctx.Err())
		}
	})
}
