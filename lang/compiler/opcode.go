package compiler

import "fmt"

// Opcode identifies a single bytecode instruction (§4.4.2). Unlike the
// teacher's Starlark opcode set, operands here are fixed-width: 0, 1 or 2
// immediate bytes, never a varint — §4.3.5 specifies 16-bit big-endian jump
// offsets and §4.3.3 specifies single-byte slot/upvalue/constant indices, so
// there is no variable-length encoding to support. The one exception is
// OpClosure, whose constant byte is followed by one (is-local, index) byte
// pair per captured upvalue.
type Opcode uint8

// "x OP x x" below is a stack picture: values present before OP, then after.
const ( //nolint:revive
	OpConstant Opcode = iota //     - OpConstant<const>     value

	OpNil   //   - OpNil   nil
	OpTrue  //   - OpTrue  true
	OpFalse //   - OpFalse false

	OpPop //   x OpPop -

	OpGetLocal //     - OpGetLocal<slot>    stack[base+slot]
	OpSetLocal //   x OpSetLocal<slot>      x             (stack[base+slot] = x)

	OpGetGlobal    //   - OpGetGlobal<name>    globals[name]
	OpSetGlobal    // x OpSetGlobal<name>      x             (globals[name] = x)
	OpDefineGlobal // x OpDefineGlobal<name>   -             (globals[name] = x)

	OpGetUpvalue //     - OpGetUpvalue<idx>    *upvalues[idx]
	OpSetUpvalue //   x OpSetUpvalue<idx>      x             (*upvalues[idx] = x)

	OpGetProperty // inst OpGetProperty<name>  value
	OpSetProperty // inst val OpSetProperty<name>  val
	OpGetSuper    // inst super OpGetSuper<name> bound-method

	OpEqual   // a b OpEqual   bool
	OpGreater // a b OpGreater bool
	OpLess    // a b OpLess    bool

	OpAdd      // a b OpAdd      a+b
	OpSubtract // a b OpSubtract a-b
	OpMultiply // a b OpMultiply a*b
	OpDivide   // a b OpDivide   a/b

	OpNot    //   x OpNot    !truthy(x)
	OpNegate //   x OpNegate -x

	OpPrint // x OpPrint -

	OpJump        //   - OpJump<off>        -          (ip += off)
	OpJumpIfFalse //   x OpJumpIfFalse<off> x          (if falsey(x): ip += off)
	OpLoop        //   - OpLoop<off>        -          (ip -= off)

	OpCall //       fn a1..an OpCall<argc>       result

	OpInvoke      //        inst a1..an OpInvoke<name,argc>      result
	OpSuperInvoke // inst a1..an super OpSuperInvoke<name,argc> result

	OpClosure      //             - OpClosure<fnconst>(is-local,index)* closure
	OpCloseUpvalue // x OpCloseUpvalue -

	OpReturn // x OpReturn -

	OpClass   //   - OpClass<name>    class
	OpInherit // super sub OpInherit super (sub inherits super's methods)
	OpMethod  // klass closure OpMethod<name> klass

	opcodeCount
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("ILLEGAL_OP(%d)", op)
}

// operandKind classifies how many immediate bytes follow an opcode and how
// the disassembler should render them. OpClosure, OpInvoke and
// OpSuperInvoke are handled as special cases (see disasm.go) because their
// encoding isn't a fixed, uniform operand width.
type operandKind uint8

const (
	operandNone     operandKind = iota // 0 immediate bytes
	operandByte                        // 1 immediate byte: slot / upvalue idx / argc
	operandConst                       // 1 immediate byte: constant-pool index
	operandJump                        // 2 immediate bytes, big-endian
	operandVariadic                    // OpClosure / OpInvoke / OpSuperInvoke: see disasm.go
)

var opcodeOperands = [...]operandKind{
	OpConstant:     operandConst,
	OpNil:          operandNone,
	OpTrue:         operandNone,
	OpFalse:        operandNone,
	OpPop:          operandNone,
	OpGetLocal:     operandByte,
	OpSetLocal:     operandByte,
	OpGetGlobal:    operandConst,
	OpSetGlobal:    operandConst,
	OpDefineGlobal: operandConst,
	OpGetUpvalue:   operandByte,
	OpSetUpvalue:   operandByte,
	OpGetProperty:  operandConst,
	OpSetProperty:  operandConst,
	OpGetSuper:     operandConst,
	OpEqual:        operandNone,
	OpGreater:      operandNone,
	OpLess:         operandNone,
	OpAdd:          operandNone,
	OpSubtract:     operandNone,
	OpMultiply:     operandNone,
	OpDivide:       operandNone,
	OpNot:          operandNone,
	OpNegate:       operandNone,
	OpPrint:        operandNone,
	OpJump:         operandJump,
	OpJumpIfFalse:  operandJump,
	OpLoop:         operandJump,
	OpCall:         operandByte,
	OpInvoke:       operandVariadic,
	OpSuperInvoke:  operandVariadic,
	OpClosure:      operandVariadic,
	OpCloseUpvalue: operandNone,
	OpReturn:       operandNone,
	OpClass:        operandConst,
	OpInherit:      operandNone,
	OpMethod:       operandConst,
}
