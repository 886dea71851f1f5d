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

package conf

import (
	"encoding/json"
	"fmt"
)

// GlobalConfig is the decoded top-level JSON config object: the "redex"
// section naming the pass order, one object per pass keyed by its name, and
// free-form global keys such as "apk_dir" shared by every pass.
type GlobalConfig struct {
	vals map[string]json.RawMessage
}

// ParseGlobal decodes the top-level config. Empty input yields an empty
// config with no passes.
func ParseGlobal(data []byte) (*GlobalConfig, error) {
	g := &GlobalConfig{}
	if len(data) == 0 {
		return g, nil
	}
	if err := json.Unmarshal(data, &g.vals); err != nil {
		return nil, fmt.Errorf("config is not a JSON object: %w", err)
	}
	return g, nil
}

// Passes returns the configured pass order from "redex.passes". A config
// without a redex section configures an empty pipeline.
func (self *GlobalConfig) Passes() ([]string, error) {
	raw, ok := self.vals["redex"]
	if !ok {
		return nil, nil
	}
	var sec struct {
		Passes []string `json:"passes"`
	}
	if err := json.Unmarshal(raw, &sec); err != nil {
		return nil, fmt.Errorf("config key redex: %w", err)
	}
	return sec.Passes, nil
}

// Pass returns the config object bound to the named pass, or nil when the
// config does not mention it. Binding nil parses every option to its
// default.
func (self *GlobalConfig) Pass(name string) json.RawMessage {
	return self.vals[name]
}

// Get returns the raw value of a global key.
func (self *GlobalConfig) Get(key string) (json.RawMessage, bool) {
	raw, ok := self.vals[key]
	return raw, ok
}

// GetString decodes a global string key; a missing or non-string key reads
// as absent.
func (self *GlobalConfig) GetString(key string) (string, bool) {
	raw, ok := self.vals[key]
	if !ok {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// GetStringList decodes a global list-of-string key.
func (self *GlobalConfig) GetStringList(key string) ([]string, bool) {
	raw, ok := self.vals[key]
	if !ok {
		return nil, false
	}
	var ss []string
	if json.Unmarshal(raw, &ss) != nil {
		return nil, false
	}
	return ss, true
}

// SetDefault writes one option into a pass section unless the config
// already sets it. The runner uses this to push process-wide switches into
// the passes that honor them without overriding explicit configuration.
func (self *GlobalConfig) SetDefault(section, key string, v interface{}) error {
	sec := make(map[string]json.RawMessage)
	if raw, ok := self.vals[section]; ok {
		if err := json.Unmarshal(raw, &sec); err != nil {
			return fmt.Errorf("config key %s: %w", section, err)
		}
	}
	if _, ok := sec[key]; ok {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sec[key] = raw
	merged, err := json.Marshal(sec)
	if err != nil {
		return err
	}
	if self.vals == nil {
		self.vals = make(map[string]json.RawMessage)
	}
	self.vals[section] = merged
	return nil
}
