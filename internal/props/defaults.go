/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package props

// Properties the pipeline knows out of the box. Negative ones describe a
// debt a pass incurs and another pass must pay off before the end.
const (
	UltralightCodePatterns    Property = "UltralightCodePatterns"
	NoInitClassInstructions   Property = "NoInitClassInstructions"
	NoUnreachableInstructions Property = "NoUnreachableInstructions"
	NoResolvablePureRefs      Property = "NoResolvablePureRefs"
	NoSpuriousGetClassCalls   Property = "NoSpuriousGetClassCalls"
	HasSourceBlocks           Property = "HasSourceBlocks"
	DexLimitsObeyed           Property = "DexLimitsObeyed"
	NeedsEverythingPublic     Property = "NeedsEverythingPublic"
	NeedsInjectionIdLowering  Property = "NeedsInjectionIdLowering"
)

// DefaultDefinitions returns the builtin property table.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: UltralightCodePatterns, Initial: true},
		{Name: NoInitClassInstructions, Initial: true, Final: true},
		{Name: NoUnreachableInstructions, Initial: true, Final: true},
		{Name: NoResolvablePureRefs},
		{Name: NoSpuriousGetClassCalls},
		{Name: HasSourceBlocks},
		{Name: DexLimitsObeyed, Initial: true, Final: true},
		{Name: NeedsEverythingPublic, Negative: true},
		{Name: NeedsInjectionIdLowering, Negative: true},
	}
}
