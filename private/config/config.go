// Copyright 2019 Anapaya Systems
// Copyright 2025 OpenOptics Authors
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

// Package config defines how configuration blocks are defaulted, validated
// and documented.
//
// A block implements Config. InitDefaults fills unset fields, Validate checks
// the result and Sample writes a commented TOML example of the block. The
// sample of every block doubles as its test fixture: decoding it must yield
// the defaults.
//
// Sample may panic when the destination writer fails.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

// Config is a defaultable, validatable and documented configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator checks a block after defaults were applied.
type Validator interface {
	Validate() error
}

// Defaulter sets unset fields of a block, including nested blocks.
type Defaulter interface {
	InitDefaults()
}

// Sampler writes a commented example of a block. The path names the table the
// block lives in and ctx carries values such as the element ID.
type Sampler interface {
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler that owns a TOML table named ConfigName.
type TableSampler interface {
	Sampler
	ConfigName() string
}

// Path is the dotted name of a TOML table, one element per level.
type Path []string

// Extend returns a new path with s appended. p is not modified.
func (p Path) Extend(s string) Path {
	ext := make(Path, len(p), len(p)+1)
	copy(ext, p)
	return append(ext, s)
}

// NoValidator can be embedded by blocks that accept any value.
type NoValidator struct{}

func (NoValidator) Validate() error {
	return nil
}

// ValidateAll runs every validator in order and stops at the first failure.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("invalid configuration", err, "block", blockName(v))
		}
	}
	return nil
}

// InitAll applies the defaults of every defaulter in order.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode strictly decodes TOML into cfg. Keys without a matching field are an
// error.
func Decode(raw []byte, cfg any) error {
	dec := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields()
	err := dec.Decode(cfg)
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return serrors.Wrap("unknown configuration keys", err, "details", strict.String())
	}
	return err
}

// LoadFile reads file and decodes it into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading configuration", err, "file", file)
	}
	return Decode(raw, cfg)
}

// Digest returns the SHA256 sum of the JSON encoding of cfg. Two configs with
// the same effective values have the same digest.
func Digest(cfg Config) ([]byte, error) {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(cfg); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func blockName(v any) string {
	if ts, ok := v.(TableSampler); ok {
		return ts.ConfigName()
	}
	return fmt.Sprintf("%T", v)
}
