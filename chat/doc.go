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


// Package chat turns retrieved employee records into a natural-language
// answer.
//
// A Service retrieves the records nearest to a query and hands them to a
// Generator. The LLM generator formats the records as profiles, embeds them
// in an HR-assistant prompt and asks an ai.TextGenerator for the answer.
// When retrieval finds nothing the model is not called and the service
// answers with NoCandidatesMessage.
//
// Generation failures are wrapped with ErrGeneration so callers can tell
// them apart from retrieval failures.
package chat
