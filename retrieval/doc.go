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


// Package retrieval answers "which employees best match this text?".
//
// A Service is built once from a query encoder and a loaded corpus and never
// changes afterwards, so any number of goroutines may call Retrieve
// concurrently. Retrieve runs three steps:
//   - Encode the query with the same encoder that built the index
//   - Find the k nearest index positions by squared L2 distance
//   - Resolve those positions to employee records
//
// Results are ordered by ascending distance; equal distances keep index
// order. If a position cannot be resolved the index and metadata no longer
// pair up: the Service latches and fails every later call with
// core.ErrDesynchronized until it is rebuilt from a fresh artifact.
//
// A Monitor observes each search; PrometheusMonitor exports request counts,
// latencies and result sizes.
package retrieval
