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


// Package search finds sermon passages in a tenant's indexed transcripts.
//
// A query is embedded and matched against the chunk vectors of the tenant
// namespace. Hits are ranked by similarity, with a boost for chunks that
// contain every significant query word. Filler words such as "the" or "um"
// do not count.
package search
