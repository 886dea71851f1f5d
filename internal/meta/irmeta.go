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

// Package meta persists pipeline state into the meta directory: the packed
// irmeta.bin blob carrying deobfuscated names and referenced-state bits,
// the resource id mappings, and the flattened metrics report.
package meta

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/cloudwego/rdx/internal/ir"
)

// MetaFile is the irmeta blob's file name inside the meta directory.
const MetaFile = "irmeta.bin"

/* header ::= magic[8] checksum:u32 file_size:u32 classes_size:u32, all
 * little-endian; the checksum covers everything after the header. */
const (
	magic       = "rdx.\n\x14\x12\x00"
	headerSize  = 20
	stateSize   = 3
	tagClass    = '\x00'
	tagField    = '\x01'
	tagMethod   = '\x02'
	offChecksum = 8
	offFileSize = 12
	offClsSize  = 16
)

// FormatError reports a malformed irmeta blob.
type FormatError struct {
	Off    int
	Reason string
}

func (self FormatError) Error() string {
	return fmt.Sprintf("FormatError(irmeta): %s at offset %d", self.Reason, self.Off)
}

// MemberMeta is one field or method entry: the deobfuscated name and the
// packed referenced state.
type MemberMeta struct {
	Name  string
	State [3]byte
}

// ClassMeta is one class entry with its member entries. Members whose state
// was all-default are not written, so the lists are usually sparse.
type ClassMeta struct {
	Name    string
	State   [3]byte
	Fields  []MemberMeta
	Methods []MemberMeta
}

// Meta is a decoded irmeta blob.
type Meta struct {
	Classes []ClassMeta
}

func uleb128Size(v uint32) int {
	n := 1
	for v > 0x7f {
		n++
		v >>= 7
	}
	return n
}

func putUleb128(b []byte, off int, v uint32) int {
	for v > 0x7f {
		b[off] = byte(v) | 0x80
		off++
		v >>= 7
	}
	b[off] = byte(v)
	return off + 1
}

/* lstr ::= uleb128 length, the bytes, one NUL */
func lstrSize(s string) int {
	return uleb128Size(uint32(len(s))) + len(s) + 1
}

func putLstr(b []byte, off int, s string) int {
	off = putUleb128(b, off, uint32(len(s)))
	off += copy(b[off:], s)
	b[off] = 0
	return off + 1
}

func entrySize(name string) int {
	return 1 + lstrSize(name) + stateSize
}

func putEntry(b []byte, off int, tag byte, name string, st [3]byte) int {
	b[off] = tag
	off = putLstr(b, off+1, name)
	off += copy(b[off:], st[:])
	return off
}

func classSize(cls *ir.DexClass) int {
	var zero [3]byte
	n := entrySize(cls.DeobfuscatedName())
	for _, f := range cls.AllFields() {
		if f.Rstate().Pack() != zero {
			n += entrySize(f.DeobfuscatedName())
		}
	}
	for _, m := range cls.AllMethods() {
		if m.Rstate().Pack() != zero {
			n += entrySize(m.DeobfuscatedName())
		}
	}
	return n
}

func putClass(b []byte, off int, cls *ir.DexClass) int {
	var zero [3]byte
	off = putEntry(b, off, tagClass, cls.DeobfuscatedName(), cls.Rstate().Pack())
	for _, f := range cls.AllFields() {
		if st := f.Rstate().Pack(); st != zero {
			off = putEntry(b, off, tagField, f.DeobfuscatedName(), st)
		}
	}
	for _, m := range cls.AllMethods() {
		if st := m.Rstate().Pack(); st != zero {
			off = putEntry(b, off, tagMethod, m.DeobfuscatedName(), st)
		}
	}
	return off
}

// EncodeMeta serializes the scope's referenced states into the irmeta wire
// form. The buffer is sized exactly before it is filled.
func EncodeMeta(scope []*ir.DexClass) []byte {
	n := headerSize
	for _, cls := range scope {
		n += classSize(cls)
	}

	buf := dirtmake.Bytes(n, n)
	copy(buf, magic)
	off := headerSize
	for _, cls := range scope {
		off = putClass(buf, off, cls)
	}

	payload := buf[headerSize:]
	binary.LittleEndian.PutUint32(buf[offChecksum:], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(buf[offFileSize:], uint32(len(buf)))
	binary.LittleEndian.PutUint32(buf[offClsSize:], uint32(len(payload)))
	return buf
}

type _Reader struct {
	data []byte
	off  int
}

func (self *_Reader) fail(reason string) error {
	return FormatError{Off: self.off, Reason: reason}
}

func (self *_Reader) u8() (byte, error) {
	if self.off >= len(self.data) {
		return 0, self.fail("truncated entry")
	}
	b := self.data[self.off]
	self.off++
	return b, nil
}

func (self *_Reader) uleb128() (uint32, error) {
	var v uint32
	var shift uint
	for {
		b, err := self.u8()
		if err != nil {
			return 0, err
		}
		if shift > 28 {
			return 0, self.fail("uleb128 overflows 32 bits")
		}
		v |= uint32(b&0x7f) << shift
		if b <= 0x7f {
			return v, nil
		}
		shift += 7
	}
}

func (self *_Reader) lstr() (string, error) {
	n, err := self.uleb128()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", self.fail("empty string")
	}
	if self.off+int(n)+1 > len(self.data) {
		return "", self.fail("truncated string")
	}
	s := string(self.data[self.off : self.off+int(n)])
	self.off += int(n)
	if self.data[self.off] != 0 {
		return "", self.fail("string missing terminator")
	}
	self.off++
	return s, nil
}

func (self *_Reader) state() ([3]byte, error) {
	var st [3]byte
	if self.off+stateSize > len(self.data) {
		return st, self.fail("truncated referenced state")
	}
	copy(st[:], self.data[self.off:])
	self.off += stateSize
	return st, nil
}

// DecodeMeta parses and validates an irmeta blob.
func DecodeMeta(data []byte) (*Meta, error) {
	r := &_Reader{data: data}
	if len(data) < headerSize {
		return nil, r.fail("truncated header")
	}
	if string(data[:8]) != magic {
		return nil, r.fail("bad magic")
	}
	if n := binary.LittleEndian.Uint32(data[offFileSize:]); int(n) != len(data) {
		return nil, FormatError{Off: offFileSize, Reason: "file size mismatch"}
	}
	if n := binary.LittleEndian.Uint32(data[offClsSize:]); int(n) != len(data)-headerSize {
		return nil, FormatError{Off: offClsSize, Reason: "classes size mismatch"}
	}
	sum := binary.LittleEndian.Uint32(data[offChecksum:])
	if crc32.ChecksumIEEE(data[headerSize:]) != sum {
		return nil, FormatError{Off: offChecksum, Reason: "checksum mismatch"}
	}

	ret := new(Meta)
	r.off = headerSize
	for r.off < len(data) {
		tag, err := r.u8()
		if err != nil {
			return nil, err
		}
		name, err := r.lstr()
		if err != nil {
			return nil, err
		}
		st, err := r.state()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagClass:
			ret.Classes = append(ret.Classes, ClassMeta{Name: name, State: st})
		case tagField, tagMethod:
			if len(ret.Classes) == 0 {
				return nil, FormatError{Off: r.off, Reason: "member entry before any class"}
			}
			cls := &ret.Classes[len(ret.Classes)-1]
			if tag == tagField {
				cls.Fields = append(cls.Fields, MemberMeta{Name: name, State: st})
			} else {
				cls.Methods = append(cls.Methods, MemberMeta{Name: name, State: st})
			}
		default:
			return nil, FormatError{Off: r.off, Reason: fmt.Sprintf("unknown entry tag %#x", tag)}
		}
	}
	return ret, nil
}

// Apply restores the decoded states onto the scope, matching classes and
// members by deobfuscated name. Entries with no match are skipped; the
// return value counts the definitions updated.
func (self *Meta) Apply(scope []*ir.DexClass) int {
	byName := make(map[string]*ir.DexClass, len(scope))
	for _, cls := range scope {
		byName[cls.DeobfuscatedName()] = cls
	}

	matched := 0
	for i := range self.Classes {
		cm := &self.Classes[i]
		cls := byName[cm.Name]
		if cls == nil {
			continue
		}
		cls.Rstate().Unpack(cm.State)
		matched++

		if len(cm.Fields) > 0 {
			fields := make(map[string]*ir.DexField)
			for _, f := range cls.AllFields() {
				fields[f.DeobfuscatedName()] = f
			}
			for _, fm := range cm.Fields {
				if f := fields[fm.Name]; f != nil {
					f.Rstate().Unpack(fm.State)
					matched++
				}
			}
		}
		if len(cm.Methods) > 0 {
			methods := make(map[string]*ir.DexMethod)
			for _, m := range cls.AllMethods() {
				methods[m.DeobfuscatedName()] = m
			}
			for _, mm := range cm.Methods {
				if m := methods[mm.Name]; m != nil {
					m.Rstate().Unpack(mm.State)
					matched++
				}
			}
		}
	}
	return matched
}

// Save writes the scope's irmeta blob into the meta directory.
func Save(dir string, scope []*ir.DexClass) error {
	return os.WriteFile(filepath.Join(dir, MetaFile), EncodeMeta(scope), 0o644)
}

// Load reads and decodes the irmeta blob from the meta directory.
func Load(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	return DecodeMeta(data)
}
