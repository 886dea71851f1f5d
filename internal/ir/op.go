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

package ir

import (
	"fmt"
)

// Op identifies an instruction opcode. The set covers the DEX opcodes the
// pipeline manipulates plus the internal pseudo-opcodes (load-param family,
// move-result-pseudo family, init-class, injection-id, unreachable) that
// only exist between loading and lowering.
type Op uint8

const (
	OpNop Op = iota
	OpMove
	OpMoveWide
	OpMoveObject
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveException
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpConst
	OpConstWide
	OpConstString
	OpConstClass
	OpMonitorEnter
	OpMonitorExit
	OpCheckCast
	OpInstanceOf
	OpArrayLength
	OpNewInstance
	OpNewArray
	OpThrow
	OpGoto
	OpSwitch
	OpCmpLong
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfEqz
	OpIfNez
	OpIfLtz
	OpIfGez
	OpIfGtz
	OpIfLez
	OpAget
	OpAgetObject
	OpAput
	OpAputObject
	OpIget
	OpIgetWide
	OpIgetObject
	OpIput
	OpIputWide
	OpIputObject
	OpSget
	OpSgetWide
	OpSgetObject
	OpSput
	OpSputWide
	OpSputObject
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAndInt
	OpOrInt
	OpXorInt
	OpShlInt
	OpShrInt
	OpAddLong
	OpSubLong
	OpLoadParam
	OpLoadParamObject
	OpLoadParamWide
	OpMoveResultPseudo
	OpMoveResultPseudoObject
	OpMoveResultPseudoWide
	OpInitClass
	OpInjectionID
	OpUnreachable
	_OpMax
)

// RegKind classifies the value held by a register operand.
type RegKind uint8

const (
	KindNone RegKind = iota // unconstrained
	KindNormal              // 32-bit value
	KindWide                // 64-bit value, register pair
	KindObject              // reference
)

type _DestMode uint8

const (
	_DestNone _DestMode = iota
	_DestReg            // destination encoded on the instruction
	_DestPseudo         // destination carried by a following move-result-pseudo
	_DestResult         // destination carried by a following move-result
)

type _RefKind uint8

const (
	_RefNone _RefKind = iota
	_RefLiteral
	_RefString
	_RefType
	_RefField
	_RefMethod
)

type _TermKind uint8

const (
	_TermNone _TermKind = iota
	_TermGoto
	_TermBranch
	_TermSwitch
	_TermReturn
	_TermThrow
	_TermUnreachable
)

type _OpInfo struct {
	name   string
	size   uint8 // code units occupied after lowering
	srcs   int8  // -1 means determined by the method reference
	skind  [3]RegKind
	dmode  _DestMode
	dkind  RegKind
	refk   _RefKind
	term   _TermKind
	throw  bool
	pseudo bool
}

var _OpTab = [_OpMax]_OpInfo{
	OpNop:              {name: "nop", size: 1},
	OpMove:             {name: "move", size: 1, srcs: 1, skind: [3]RegKind{KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpMoveWide:         {name: "move-wide", size: 1, srcs: 1, skind: [3]RegKind{KindWide}, dmode: _DestReg, dkind: KindWide},
	OpMoveObject:       {name: "move-object", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestReg, dkind: KindObject},
	OpMoveResult:       {name: "move-result", size: 1, dmode: _DestReg, dkind: KindNormal},
	OpMoveResultWide:   {name: "move-result-wide", size: 1, dmode: _DestReg, dkind: KindWide},
	OpMoveResultObject: {name: "move-result-object", size: 1, dmode: _DestReg, dkind: KindObject},
	OpMoveException:    {name: "move-exception", size: 1, dmode: _DestReg, dkind: KindObject},
	OpReturnVoid:       {name: "return-void", size: 1, term: _TermReturn},
	OpReturn:           {name: "return", size: 1, srcs: 1, skind: [3]RegKind{KindNormal}, term: _TermReturn},
	OpReturnWide:       {name: "return-wide", size: 1, srcs: 1, skind: [3]RegKind{KindWide}, term: _TermReturn},
	OpReturnObject:     {name: "return-object", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, term: _TermReturn},
	OpConst:            {name: "const", size: 2, dmode: _DestReg, dkind: KindNormal, refk: _RefLiteral},
	OpConstWide:        {name: "const-wide", size: 3, dmode: _DestReg, dkind: KindWide, refk: _RefLiteral},
	OpConstString:      {name: "const-string", size: 2, dmode: _DestPseudo, dkind: KindObject, refk: _RefString, throw: true},
	OpConstClass:       {name: "const-class", size: 2, dmode: _DestPseudo, dkind: KindObject, refk: _RefType, throw: true},
	OpMonitorEnter:     {name: "monitor-enter", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, throw: true},
	OpMonitorExit:      {name: "monitor-exit", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, throw: true},
	OpCheckCast:        {name: "check-cast", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindObject, refk: _RefType, throw: true},
	OpInstanceOf:       {name: "instance-of", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindNormal, refk: _RefType, throw: true},
	OpArrayLength:      {name: "array-length", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindNormal, throw: true},
	OpNewInstance:      {name: "new-instance", size: 2, dmode: _DestPseudo, dkind: KindObject, refk: _RefType, throw: true},
	OpNewArray:         {name: "new-array", size: 2, srcs: 1, skind: [3]RegKind{KindNormal}, dmode: _DestPseudo, dkind: KindObject, refk: _RefType, throw: true},
	OpThrow:            {name: "throw", size: 1, srcs: 1, skind: [3]RegKind{KindObject}, term: _TermThrow, throw: true},
	OpGoto:             {name: "goto", size: 1, term: _TermGoto},
	OpSwitch:           {name: "switch", size: 3, srcs: 1, skind: [3]RegKind{KindNormal}, term: _TermSwitch},
	OpCmpLong:          {name: "cmp-long", size: 2, srcs: 2, skind: [3]RegKind{KindWide, KindWide}, dmode: _DestReg, dkind: KindNormal},
	OpIfEq:             {name: "if-eq", size: 2, srcs: 2, term: _TermBranch},
	OpIfNe:             {name: "if-ne", size: 2, srcs: 2, term: _TermBranch},
	OpIfLt:             {name: "if-lt", size: 2, srcs: 2, term: _TermBranch},
	OpIfGe:             {name: "if-ge", size: 2, srcs: 2, term: _TermBranch},
	OpIfGt:             {name: "if-gt", size: 2, srcs: 2, term: _TermBranch},
	OpIfLe:             {name: "if-le", size: 2, srcs: 2, term: _TermBranch},
	OpIfEqz:            {name: "if-eqz", size: 2, srcs: 1, term: _TermBranch},
	OpIfNez:            {name: "if-nez", size: 2, srcs: 1, term: _TermBranch},
	OpIfLtz:            {name: "if-ltz", size: 2, srcs: 1, term: _TermBranch},
	OpIfGez:            {name: "if-gez", size: 2, srcs: 1, term: _TermBranch},
	OpIfGtz:            {name: "if-gtz", size: 2, srcs: 1, term: _TermBranch},
	OpIfLez:            {name: "if-lez", size: 2, srcs: 1, term: _TermBranch},
	OpAget:             {name: "aget", size: 2, srcs: 2, skind: [3]RegKind{KindObject, KindNormal}, dmode: _DestPseudo, dkind: KindNormal, throw: true},
	OpAgetObject:       {name: "aget-object", size: 2, srcs: 2, skind: [3]RegKind{KindObject, KindNormal}, dmode: _DestPseudo, dkind: KindObject, throw: true},
	OpAput:             {name: "aput", size: 2, srcs: 3, skind: [3]RegKind{KindNormal, KindObject, KindNormal}, throw: true},
	OpAputObject:       {name: "aput-object", size: 2, srcs: 3, skind: [3]RegKind{KindObject, KindObject, KindNormal}, throw: true},
	OpIget:             {name: "iget", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindNormal, refk: _RefField, throw: true},
	OpIgetWide:         {name: "iget-wide", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindWide, refk: _RefField, throw: true},
	OpIgetObject:       {name: "iget-object", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, dmode: _DestPseudo, dkind: KindObject, refk: _RefField, throw: true},
	OpIput:             {name: "iput", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindObject}, refk: _RefField, throw: true},
	OpIputWide:         {name: "iput-wide", size: 2, srcs: 2, skind: [3]RegKind{KindWide, KindObject}, refk: _RefField, throw: true},
	OpIputObject:       {name: "iput-object", size: 2, srcs: 2, skind: [3]RegKind{KindObject, KindObject}, refk: _RefField, throw: true},
	OpSget:             {name: "sget", size: 2, dmode: _DestPseudo, dkind: KindNormal, refk: _RefField, throw: true},
	OpSgetWide:         {name: "sget-wide", size: 2, dmode: _DestPseudo, dkind: KindWide, refk: _RefField, throw: true},
	OpSgetObject:       {name: "sget-object", size: 2, dmode: _DestPseudo, dkind: KindObject, refk: _RefField, throw: true},
	OpSput:             {name: "sput", size: 2, srcs: 1, skind: [3]RegKind{KindNormal}, refk: _RefField, throw: true},
	OpSputWide:         {name: "sput-wide", size: 2, srcs: 1, skind: [3]RegKind{KindWide}, refk: _RefField, throw: true},
	OpSputObject:       {name: "sput-object", size: 2, srcs: 1, skind: [3]RegKind{KindObject}, refk: _RefField, throw: true},
	OpInvokeVirtual:    {name: "invoke-virtual", size: 3, srcs: -1, dmode: _DestResult, refk: _RefMethod, throw: true},
	OpInvokeSuper:      {name: "invoke-super", size: 3, srcs: -1, dmode: _DestResult, refk: _RefMethod, throw: true},
	OpInvokeDirect:     {name: "invoke-direct", size: 3, srcs: -1, dmode: _DestResult, refk: _RefMethod, throw: true},
	OpInvokeStatic:     {name: "invoke-static", size: 3, srcs: -1, dmode: _DestResult, refk: _RefMethod, throw: true},
	OpInvokeInterface:  {name: "invoke-interface", size: 3, srcs: -1, dmode: _DestResult, refk: _RefMethod, throw: true},
	OpAddInt:           {name: "add-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpSubInt:           {name: "sub-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpMulInt:           {name: "mul-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpDivInt:           {name: "div-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestPseudo, dkind: KindNormal, throw: true},
	OpRemInt:           {name: "rem-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestPseudo, dkind: KindNormal, throw: true},
	OpAndInt:           {name: "and-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpOrInt:            {name: "or-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpXorInt:           {name: "xor-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpShlInt:           {name: "shl-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpShrInt:           {name: "shr-int", size: 2, srcs: 2, skind: [3]RegKind{KindNormal, KindNormal}, dmode: _DestReg, dkind: KindNormal},
	OpAddLong:          {name: "add-long", size: 2, srcs: 2, skind: [3]RegKind{KindWide, KindWide}, dmode: _DestReg, dkind: KindWide},
	OpSubLong:          {name: "sub-long", size: 2, srcs: 2, skind: [3]RegKind{KindWide, KindWide}, dmode: _DestReg, dkind: KindWide},

	/* internal pseudo-opcodes, erased when lowering back to DEX */
	OpLoadParam:              {name: "load-param", dmode: _DestReg, dkind: KindNormal, pseudo: true},
	OpLoadParamObject:        {name: "load-param-object", dmode: _DestReg, dkind: KindObject, pseudo: true},
	OpLoadParamWide:          {name: "load-param-wide", dmode: _DestReg, dkind: KindWide, pseudo: true},
	OpMoveResultPseudo:       {name: "move-result-pseudo", dmode: _DestReg, dkind: KindNormal, pseudo: true},
	OpMoveResultPseudoObject: {name: "move-result-pseudo-object", dmode: _DestReg, dkind: KindObject, pseudo: true},
	OpMoveResultPseudoWide:   {name: "move-result-pseudo-wide", dmode: _DestReg, dkind: KindWide, pseudo: true},
	OpInitClass:              {name: "init-class", size: 2, refk: _RefType, throw: true, pseudo: true},
	OpInjectionID:            {name: "injection-id", size: 2, dmode: _DestReg, dkind: KindNormal, refk: _RefLiteral, pseudo: true},
	OpUnreachable:            {name: "unreachable", size: 1, term: _TermUnreachable, pseudo: true},
}

func (self Op) info() *_OpInfo {
	if self >= _OpMax {
		panic(fmt.Sprintf("invalid opcode: %d", self))
	}
	return &_OpTab[self]
}

func (self Op) String() string { return self.info().name }

// UnitSize is the number of 16-bit code units the instruction occupies once
// lowered. Pseudo-opcodes that vanish at lowering report zero.
func (self Op) UnitSize() int { return int(self.info().size) }

// SrcCount is the fixed source-operand arity, or -1 when the arity follows
// the invoked method's signature.
func (self Op) SrcCount() int { return int(self.info().srcs) }

// HasDest reports whether the destination register is encoded on the
// instruction itself rather than on a trailing move-result form.
func (self Op) HasDest() bool { return self.info().dmode == _DestReg }

// DestKind is the register class of the value produced, regardless of where
// the destination register lives.
func (self Op) DestKind() RegKind { return self.info().dkind }

// HasMoveResultPseudo reports whether the instruction writes its result via
// an immediately following move-result-pseudo.
func (self Op) HasMoveResultPseudo() bool { return self.info().dmode == _DestPseudo }

// HasMoveResult reports whether the instruction may be followed by a
// move-result (the invoke family).
func (self Op) HasMoveResult() bool { return self.info().dmode == _DestResult }

func (self Op) IsMoveResultPseudo() bool {
	return self == OpMoveResultPseudo || self == OpMoveResultPseudoObject || self == OpMoveResultPseudoWide
}

func (self Op) IsMoveResult() bool {
	return self == OpMoveResult || self == OpMoveResultWide || self == OpMoveResultObject
}

func (self Op) IsMoveResultAny() bool {
	return self.IsMoveResult() || self.IsMoveResultPseudo()
}

func (self Op) IsMove() bool {
	return self == OpMove || self == OpMoveWide || self == OpMoveObject
}

func (self Op) IsConst() bool {
	return self == OpConst || self == OpConstWide
}

func (self Op) IsLoadParam() bool {
	return self == OpLoadParam || self == OpLoadParamObject || self == OpLoadParamWide
}

func (self Op) IsInvoke() bool {
	return self >= OpInvokeVirtual && self <= OpInvokeInterface
}

func (self Op) IsConditionalBranch() bool { return self.info().term == _TermBranch }
func (self Op) IsSwitch() bool            { return self == OpSwitch }
func (self Op) IsGoto() bool              { return self == OpGoto }
func (self Op) IsReturn() bool            { return self.info().term == _TermReturn }
func (self Op) IsThrowOp() bool           { return self == OpThrow }

// IsTerminator reports whether the instruction always ends its basic block.
func (self Op) IsTerminator() bool { return self.info().term != _TermNone }

// CanThrow reports whether the instruction may transfer control to a catch
// handler.
func (self Op) CanThrow() bool { return self.info().throw }

// IsInternal reports whether the opcode is one of the internal pseudo-ops.
func (self Op) IsInternal() bool { return self.info().pseudo }

func (self Op) HasLiteral() bool   { return self.info().refk == _RefLiteral }
func (self Op) HasStringRef() bool { return self.info().refk == _RefString }
func (self Op) HasTypeRef() bool   { return self.info().refk == _RefType }
func (self Op) HasFieldRef() bool  { return self.info().refk == _RefField }
func (self Op) HasMethodRef() bool { return self.info().refk == _RefMethod }
