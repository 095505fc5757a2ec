// Copyright 2019 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// ID is the key for the element ID in the sample context.
const ID = "id"

// CtxMap contains the context for sample generation.
type CtxMap map[string]string

// WriteSample writes the samples in order to dst. A TableSampler gets a
// [path.name] header and its block is indented by four spaces. It panics if
// dst fails.
func WriteSample(dst io.Writer, path Path, ctx CtxMap, samplers ...Sampler) {
	for _, sampler := range samplers {
		ts, ok := sampler.(TableSampler)
		if !ok {
			sampler.Sample(dst, path, ctx)
			continue
		}
		table := path.Extend(ts.ConfigName())
		var block bytes.Buffer
		ts.Sample(&block, table, ctx)
		WriteString(dst, "\n["+strings.Join(table, ".")+"]")
		WriteString(dst, indent(block.String()))
	}
}

// WriteString writes s to dst. It panics if dst fails.
func WriteString(dst io.Writer, s string) {
	if _, err := io.WriteString(dst, s); err != nil {
		panic(fmt.Sprintf("Unable to write sample err=%s", err))
	}
}

// indent prefixes every non-empty line of s with four spaces. Every line,
// including the last, is terminated by a newline.
func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		if line != "" {
			b.WriteString("    ")
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
