// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"io"
)

// composite pairs an embedder and a generator that may come from different
// backends, e.g. a local hashing embedder with an Ollama generator.
type composite struct {
	embedder  Embedder
	generator TextGenerator
}

// Compose builds an AIProvider from independently constructed services.
// generator may be nil. Close closes any service that implements io.Closer.
func Compose(embedder Embedder, generator TextGenerator) AIProvider {
	return &composite{embedder: embedder, generator: generator}
}

func (c *composite) Embedder() Embedder {
	return c.embedder
}

func (c *composite) Generator() TextGenerator {
	return c.generator
}

func (c *composite) Close() error {
	var errs []error
	if closer, ok := c.embedder.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := c.generator.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
