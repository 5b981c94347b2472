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
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nextdoor/kingpin/dsl"
)

var httpSchema = dsl.Schema{
	"method":  dsl.OptionSpec{Kind: dsl.KindString, Default: "GET", Doc: "HTTP method"},
	"url":     dsl.OptionSpec{Kind: dsl.KindString, Default: dsl.Required, Doc: "target URL"},
	"headers": dsl.OptionSpec{Kind: dsl.KindMapping, Default: map[string]interface{}{}, Doc: "request headers"},
	"body":    dsl.OptionSpec{Kind: dsl.KindString, Default: "", Doc: "request body"},
	"want_status": dsl.OptionSpec{
		Kind: dsl.KindInt, Default: 0,
		Doc: "expected status code; 0 means any 2xx is accepted",
	},
}

func init() {
	dsl.Registry.Register("kingpin.misc.HTTP", NewHTTP, dsl.WithSchema(httpSchema))
}

// HTTP issues a single request. It's the Kingpin equivalent of the
// teacher's httpclient Chan, minus the pub/sub framing: one request,
// one pass/fail outcome, no response routed anywhere else in the tree.
type HTTP struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       string
	WantStatus int

	client *http.Client
}

func NewHTTP(ctx *dsl.Ctx, options map[string]interface{}, scope dsl.Scope) (dsl.Actor, error) {
	clean, err := httpSchema.Validate(options)
	if err != nil {
		return nil, err
	}
	headers, err := toStringMap(clean["headers"])
	if err != nil {
		return nil, dsl.InvalidOptions("'headers': %v", err)
	}

	wantStatus, err := toIntOption(clean["want_status"])
	if err != nil {
		return nil, dsl.InvalidOptions("'want_status': %v", err)
	}

	return &HTTP{
		Method:     strings.ToUpper(clean["method"].(string)),
		URL:        clean["url"].(string),
		Headers:    headers,
		Body:       clean["body"].(string),
		WantStatus: wantStatus,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (h *HTTP) DefaultDesc() string { return fmt.Sprintf("%s %s", h.Method, h.URL) }

func (h *HTTP) Run(ctx *dsl.Ctx, dry bool) error {
	return dsl.Dry(ctx, dry, fmt.Sprintf("%s %s", h.Method, h.URL), func() error {
		req, err := http.NewRequestWithContext(ctx.Context, h.Method, h.URL, bytes.NewBufferString(h.Body))
		if err != nil {
			return dsl.NewBroken(fmt.Errorf("building request: %w", err))
		}
		for k, v := range h.Headers {
			req.Header.Set(k, v)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			return dsl.NewRecoverable(fmt.Errorf("%s %s: %w", h.Method, h.URL, err))
		}
		defer resp.Body.Close()

		bs, _ := io.ReadAll(resp.Body)
		ctx.Logdf("%s %s -> %s: %s", h.Method, h.URL, resp.Status, bs)

		if h.WantStatus != 0 {
			if resp.StatusCode != h.WantStatus {
				return dsl.NewRecoverable(fmt.Errorf("%s %s: want status %d, got %d", h.Method, h.URL, h.WantStatus, resp.StatusCode))
			}
			return nil
		}
		if resp.StatusCode/100 != 2 {
			return dsl.NewRecoverable(fmt.Errorf("%s %s: status %s", h.Method, h.URL, resp.Status))
		}
		return nil
	})
}

func toIntOption(v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("want an integer, got %T", v)
	}
}
