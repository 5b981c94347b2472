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

// Command kingpin is the CLI entry point (spec §6): it blank-imports
// every built-in actor package so their init() functions populate the
// Actor Registry, then hands off to the Runner.
package main

import (
	"os"

	"github.com/nextdoor/kingpin/dsl"

	_ "github.com/nextdoor/kingpin/actors/ensurefile"
	_ "github.com/nextdoor/kingpin/actors/group"
	_ "github.com/nextdoor/kingpin/actors/macro"
	_ "github.com/nextdoor/kingpin/actors/misc"
)

func main() {
	runner := dsl.NewRunner(dsl.ConfigFromEnv())
	os.Exit(runner.Main(os.Args[1:]))
}
