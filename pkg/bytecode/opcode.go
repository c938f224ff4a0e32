package bytecode

// Opcode is a stack-machine operation.
type Opcode int

const (
	// Stack
	OpPushInt Opcode = iota
	OpPushFloat
	OpPushString
	OpPushBool
	OpPushNull
	OpPop
	OpDup
	OpSwap

	// Integer arithmetic
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpModInt
	OpNegInt

	// Strings
	OpConcatString
	OpIntToString

	// Integer comparison
	OpCmpEqInt
	OpCmpNeInt
	OpCmpLtInt
	OpCmpLeInt
	OpCmpGtInt
	OpCmpGeInt

	// Control flow
	OpJmp
	OpJmpIfTrue
	OpJmpIfFalse
	OpCall
	OpCallSlots
	OpRet
	OpLabel

	// Memory
	OpLoadLocal
	OpStoreLocal
	OpLoadField
	OpStoreField
	OpStoreSlot

	// Arrays
	OpArrayNew
	OpArrayLoad
	OpArrayStore
	OpArrayLength

	// I/O
	OpPrint
	OpReadInput

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpPushInt:      "PUSH_INT",
	OpPushFloat:    "PUSH_FLOAT",
	OpPushString:   "PUSH_STRING",
	OpPushBool:     "PUSH_BOOL",
	OpPushNull:     "PUSH_NULL",
	OpPop:          "POP",
	OpDup:          "DUP",
	OpSwap:         "SWAP",
	OpAddInt:       "ADD_INT",
	OpSubInt:       "SUB_INT",
	OpMulInt:       "MUL_INT",
	OpDivInt:       "DIV_INT",
	OpModInt:       "MOD_INT",
	OpNegInt:       "NEG_INT",
	OpConcatString: "CONCAT_STRING",
	OpIntToString:  "INT_TO_STRING",
	OpCmpEqInt:     "CMP_EQ_INT",
	OpCmpNeInt:     "CMP_NE_INT",
	OpCmpLtInt:     "CMP_LT_INT",
	OpCmpLeInt:     "CMP_LE_INT",
	OpCmpGtInt:     "CMP_GT_INT",
	OpCmpGeInt:     "CMP_GE_INT",
	OpJmp:          "JMP",
	OpJmpIfTrue:    "JMP_IF_TRUE",
	OpJmpIfFalse:   "JMP_IF_FALSE",
	OpCall:         "CALL",
	OpCallSlots:    "CALL_SLOTS",
	OpRet:          "RET",
	OpLabel:        "LABEL",
	OpLoadLocal:    "LOAD_LOCAL",
	OpStoreLocal:   "STORE_LOCAL",
	OpLoadField:    "LOAD_FIELD",
	OpStoreField:   "STORE_FIELD",
	OpStoreSlot:    "STORE_SLOT",
	OpArrayNew:     "ARRAY_NEW",
	OpArrayLoad:    "ARRAY_LOAD",
	OpArrayStore:   "ARRAY_STORE",
	OpArrayLength:  "ARRAY_LENGTH",
	OpPrint:        "PRINT",
	OpReadInput:    "READ_INPUT",
}

func (op Opcode) String() string {
	if op >= 0 && op < numOpcodes {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// IsJump reports whether op transfers control to a label.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op == OpJmpIfTrue || op == OpJmpIfFalse
}

// IsConditionalJump reports whether op consumes a condition.
func (op Opcode) IsConditionalJump() bool {
	return op == OpJmpIfTrue || op == OpJmpIfFalse
}

// IsBinary reports whether op pops two integers and pushes one result.
func (op Opcode) IsBinary() bool {
	switch op {
	case OpAddInt, OpSubInt, OpMulInt, OpDivInt, OpModInt,
		OpCmpEqInt, OpCmpNeInt, OpCmpLtInt, OpCmpLeInt, OpCmpGtInt, OpCmpGeInt:
		return true
	}
	return false
}

// fixedEffect is the (pops, pushes) pair of every opcode whose arity does not
// depend on the surrounding code.
var fixedEffect = [numOpcodes][2]int{
	OpPushInt:      {0, 1},
	OpPushFloat:    {0, 1},
	OpPushString:   {0, 1},
	OpPushBool:     {0, 1},
	OpPushNull:     {0, 1},
	OpPop:          {1, 0},
	OpDup:          {1, 2},
	OpSwap:         {2, 2},
	OpAddInt:       {2, 1},
	OpSubInt:       {2, 1},
	OpMulInt:       {2, 1},
	OpDivInt:       {2, 1},
	OpModInt:       {2, 1},
	OpNegInt:       {1, 1},
	OpConcatString: {2, 1},
	OpIntToString:  {1, 1},
	OpCmpEqInt:     {2, 1},
	OpCmpNeInt:     {2, 1},
	OpCmpLtInt:     {2, 1},
	OpCmpLeInt:     {2, 1},
	OpCmpGtInt:     {2, 1},
	OpCmpGeInt:     {2, 1},
	OpJmp:          {0, 0},
	OpJmpIfTrue:    {1, 0},
	OpJmpIfFalse:   {1, 0},
	OpRet:          {0, 0},
	OpLabel:        {0, 0},
	OpLoadLocal:    {0, 1},
	OpStoreLocal:   {1, 0},
	OpLoadField:    {0, 1},
	OpStoreField:   {1, 0},
	OpStoreSlot:    {1, 0},
	OpArrayNew:     {1, 1},
	OpArrayLoad:    {2, 1},
	OpArrayStore:   {3, 0},
	OpArrayLength:  {1, 1},
	OpPrint:        {1, 0},
	OpReadInput:    {0, 1},
}
