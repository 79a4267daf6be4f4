// Package compiler implements the single-pass Pratt parser and bytecode
// emitter (§4.2, §4.3): it scans, parses, resolves local/upvalue/global
// references, and writes bytecode into a value.Chunk in one walk over the
// token stream, with no intermediate AST.
package compiler

import (
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/loxvm/loxvm/lang/scanner"
	"github.com/loxvm/loxvm/lang/token"
	"github.com/loxvm/loxvm/lang/value"
)

// Precedence levels, ascending (§4.3.1).
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix, infix parseFn
	prec          precedence
}

// rules is the dense Pratt rule table, indexed by token.Kind (§9: "rather
// than function pointers in a hash keyed by token kind... use a densely
// indexed table"). Sized generously past token.Kind's known range so a
// future token kind doesn't require touching this array's bound.
var rules [256]parseRule

func init() {
	set := func(k token.Kind, prefix, infix parseFn, prec precedence) {
		rules[k] = parseRule{prefix, infix, prec}
	}
	set(token.LPAREN, (*Compiler).grouping, (*Compiler).call, precCall)
	set(token.DOT, nil, (*Compiler).dot, precCall)
	set(token.MINUS, (*Compiler).unary, (*Compiler).binary, precTerm)
	set(token.PLUS, nil, (*Compiler).binary, precTerm)
	set(token.SLASH, nil, (*Compiler).binary, precFactor)
	set(token.STAR, nil, (*Compiler).binary, precFactor)
	set(token.BANG, (*Compiler).unary, nil, precNone)
	set(token.BANG_EQ, nil, (*Compiler).binary, precEquality)
	set(token.EQ_EQ, nil, (*Compiler).binary, precEquality)
	set(token.GT, nil, (*Compiler).binary, precComparison)
	set(token.GT_EQ, nil, (*Compiler).binary, precComparison)
	set(token.LT, nil, (*Compiler).binary, precComparison)
	set(token.LT_EQ, nil, (*Compiler).binary, precComparison)
	set(token.IDENT, (*Compiler).variable, nil, precNone)
	set(token.STRING, (*Compiler).string_, nil, precNone)
	set(token.NUMBER, (*Compiler).number, nil, precNone)
	set(token.AND, nil, (*Compiler).and_, precAnd)
	set(token.OR, nil, (*Compiler).or_, precOr)
	set(token.FALSE, (*Compiler).literal, nil, precNone)
	set(token.TRUE, (*Compiler).literal, nil, precNone)
	set(token.NIL, (*Compiler).literal, nil, precNone)
	set(token.THIS, (*Compiler).this_, nil, precNone)
	set(token.SUPER, (*Compiler).super_, nil, precNone)
}

func ruleFor(k token.Kind) *parseRule { return &rules[k] }

// localVar is a compile-context local (§3): its name, scope
// depth (-1 while declared-but-uninitialized), and whether any nested
// function captures it as an upvalue.
type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueRef records one entry of a compile-context's upvalue list (§3):
// either a slot in the immediately enclosing function (isLocal) or an
// upvalue index further out.
type upvalueRef struct {
	index   byte
	isLocal bool
}

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArgs     = 255
	maxParams   = 255
)

// funcState is one compile-context (§3): one per enclosing function,
// stack-shaped via enclosing.
type funcState struct {
	enclosing *funcState

	function *value.ObjFunction
	kind     value.FunctionKind

	locals     []localVar
	upvalues   []upvalueRef
	scopeDepth int
}

// classState tracks the class (if any) currently being compiled, for `this`
// and `super` resolution (§4.3.6).
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler holds all single-pass compile state: the parser driver (current,
// previous, hadError, panicMode — §4.2) plus the stack of function and
// class contexts bytecode is currently being written into.
type Compiler struct {
	sc       *scanner.Scanner
	interner *value.Interner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      []*CompileError

	fn    *funcState
	class *classState
}

// Compile compiles source into a top-level function, using interner to
// intern every string literal, identifier name, and runtime-concatenation
// result the compile produces (and the VM later produces at runtime — both
// share one Interner per interpret call, §9). It returns the compiled
// function and nil on success, or nil and the accumulated diagnostics if
// any error was reported (§4.3: failure iff an error was reported).
func Compile(source string, interner *value.Interner) (*value.ObjFunction, []*CompileError) {
	c := &Compiler{
		sc:       scanner.New(source),
		interner: interner,
	}
	c.fn = &funcState{
		function:   &value.ObjFunction{Kind: value.FuncScript, Chunk: &value.Chunk{}},
		kind:       value.FuncScript,
		locals:     []localVar{{name: "", depth: 0}}, // slot 0 reserved
		scopeDepth: 0,
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if c.hadError {
		return nil, c.errs
	}
	return fn, nil
}

// --- parser driver (§4.2) ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.sc.Scan()
		if c.current.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error_(msg string)         { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	switch {
	case tok.Kind == token.EOF:
		where = " at end"
	case tok.Kind == token.ILLEGAL:
		// scanner errors carry no extra location clause (§4.2).
	default:
		where = " at '" + tok.Lexeme + "'"
	}
	c.errs = append(c.errs, &CompileError{Line: tok.Line, Where: where, Message: msg})
}

// synchronize discards tokens until just past a `;` or just before a
// statement-starting keyword, clearing panicMode (§4.3).
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMI {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- declarations and statements (§4.3.2) ---

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)
	c.declareVariable()

	c.emitBytes(byte(OpClass), nameConst)
	c.defineVariable(nameConst)

	cls := &classState{enclosing: c.class}
	c.class = cls

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expect superclass name.")
		c.variable(false)
		if nameTok.Lexeme == c.previous.Lexeme {
			c.error_("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal(token.Token{Kind: token.IDENT, Lexeme: "super"})
		c.markInitialized()

		c.namedVariable(nameTok, false)
		c.emitByte(byte(OpInherit))
		cls.hasSuperclass = true
	}

	c.namedVariable(nameTok, false)
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitByte(byte(OpPop))

	if cls.hasSuperclass {
		c.endScope()
	}
	c.class = cls.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok)

	kind := value.FuncMethod
	if nameTok.Lexeme == "init" {
		kind = value.FuncInitializer
	}
	c.function(kind, nameTok.Lexeme)
	c.emitBytes(byte(OpMethod), nameConst)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(value.FuncFunction, c.previous.Lexeme)
	c.defineVariable(global)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitByte(byte(OpNil))
	}
	c.consume(token.SEMI, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMI, "Expect ';' after value.")
	c.emitByte(byte(OpPrint))
}

func (c *Compiler) returnStatement() {
	if c.fn.kind == value.FuncScript {
		c.error_("Can't return from top-level code.")
	}
	if c.match(token.SEMI) {
		c.emitReturn()
		return
	}
	if c.fn.kind == value.FuncInitializer {
		c.error_("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMI, "Expect ';' after return value.")
	c.emitByte(byte(OpReturn))
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emitByte(byte(OpPop))

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(byte(OpPop))
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.match(token.SEMI) {
		c.expression()
		c.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.emitByte(byte(OpPop))
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(OpJump)
		incrStart := len(c.currentChunk().Code)
		c.expression()
		c.emitByte(byte(OpPop))
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(byte(OpPop))
	}
	c.endScope()
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "Expect ';' after expression.")
	c.emitByte(byte(OpPop))
}

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

// --- Pratt expression parsing (§4.3.1) ---

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Kind).prefix
	if prefix == nil {
		c.error_("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.current.Kind).prec {
		c.advance()
		infix := ruleFor(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.error_("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.BANG:
		c.emitByte(byte(OpNot))
	case token.MINUS:
		c.emitByte(byte(OpNegate))
	}
}

func (c *Compiler) binary(_ bool) {
	op := c.previous.Kind
	rule := ruleFor(op)
	c.parsePrecedence(rule.prec + 1)

	switch op {
	case token.BANG_EQ:
		c.emitBytes(byte(OpEqual), byte(OpNot))
	case token.EQ_EQ:
		c.emitByte(byte(OpEqual))
	case token.GT:
		c.emitByte(byte(OpGreater))
	case token.GT_EQ:
		c.emitBytes(byte(OpLess), byte(OpNot))
	case token.LT:
		c.emitByte(byte(OpLess))
	case token.LT_EQ:
		c.emitBytes(byte(OpGreater), byte(OpNot))
	case token.PLUS:
		c.emitByte(byte(OpAdd))
	case token.MINUS:
		c.emitByte(byte(OpSubtract))
	case token.STAR:
		c.emitByte(byte(OpMultiply))
	case token.SLASH:
		c.emitByte(byte(OpDivide))
	}
}

func (c *Compiler) call(_ bool) {
	argc := c.argumentList()
	c.emitBytes(byte(OpCall), argc)
}

func (c *Compiler) argumentList() byte {
	var argc int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == maxArgs {
				c.error_("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argc)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitBytes(byte(OpSetProperty), name)
	case c.match(token.LPAREN):
		argc := c.argumentList()
		c.emitBytes(byte(OpInvoke), name)
		c.emitByte(argc)
	default:
		c.emitBytes(byte(OpGetProperty), name)
	}
}

func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	c.emitByte(byte(OpPop))
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitByte(byte(OpFalse))
	case token.TRUE:
		c.emitByte(byte(OpTrue))
	case token.NIL:
		c.emitByte(byte(OpNil))
	}
}

func (c *Compiler) number(_ bool) {
	f, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error_("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(f))
}

func (c *Compiler) string_(_ bool) {
	// Lexeme spans the surrounding quotes; strip them (§4.3.1).
	raw := c.previous.Lexeme
	unquoted := raw[1 : len(raw)-1]
	c.emitConstant(c.interner.Intern(unquoted))
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.previous, canAssign) }

func (c *Compiler) this_(_ bool) {
	if c.class == nil {
		c.error_("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) super_(_ bool) {
	switch {
	case c.class == nil:
		c.error_("Can't use 'super' outside of a class.")
	case !c.class.hasSuperclass:
		c.error_("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.previous)

	c.namedVariable(token.Token{Kind: token.IDENT, Lexeme: "this"}, false)
	if c.match(token.LPAREN) {
		argc := c.argumentList()
		c.namedVariable(token.Token{Kind: token.IDENT, Lexeme: "super"}, false)
		c.emitBytes(byte(OpSuperInvoke), name)
		c.emitByte(argc)
		return
	}
	c.namedVariable(token.Token{Kind: token.IDENT, Lexeme: "super"}, false)
	c.emitBytes(byte(OpGetSuper), name)
}

// --- variable resolution (§4.3.3) ---

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp Opcode
	arg := c.resolveLocal(c.fn, name.Lexeme)
	switch {
	case arg != -1:
		getOp, setOp = OpGetLocal, OpSetLocal
	default:
		if idx := c.resolveUpvalue(c.fn, name.Lexeme); idx != -1 {
			arg = idx
			getOp, setOp = OpGetUpvalue, OpSetUpvalue
		} else {
			arg = int(c.identifierConstant(name))
			getOp, setOp = OpGetGlobal, OpSetGlobal
		}
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
		return
	}
	c.emitBytes(byte(getOp), byte(arg))
}

// resolveLocal walks fs's locals from the top looking for name, per §4.3.3
// step 1. It reports the self-read-in-initializer error directly, matching
// the spec: a later caller never needs to distinguish "not found" from
// "found but invalid".
func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := &fs.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error_("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue implements §4.3.3 step 2: recursively resolve in the
// enclosing context, recording an upvalue entry in fs on the way back out.
func (c *Compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fs, byte(local), true)
	}
	if up := c.resolveUpvalue(fs.enclosing, name); up != -1 {
		return c.addUpvalue(fs, byte(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, u := range fs.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) == maxUpvalues {
		c.error_("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fs.function.UpvalueCount = len(fs.upvalues)
	return len(fs.upvalues) - 1
}

func (c *Compiler) declareVariable() {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.previous

	// Find where the current scope's locals begin: walk back past any local
	// belonging to an enclosing scope.
	start := 0
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := &c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			start = i + 1
			break
		}
	}
	if dup := slices.IndexFunc(c.fn.locals[start:], func(l localVar) bool {
		return l.name == name.Lexeme
	}); dup != -1 {
		c.error_("Variable with this name already declared in this scope.")
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if len(c.fn.locals) == maxLocals {
		c.error_("Too many local variables in function.")
		return
	}
	c.fn.locals = append(c.fn.locals, localVar{name: name.Lexeme, depth: -1})
}

func (c *Compiler) parseVariable(msg string) byte {
	c.consume(token.IDENT, msg)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(c.interner.Intern(name.Lexeme))
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OpDefineGlobal), global)
}

// --- scopes ---

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for len(c.fn.locals) > 0 && c.fn.locals[len(c.fn.locals)-1].depth > c.fn.scopeDepth {
		if c.fn.locals[len(c.fn.locals)-1].isCaptured {
			c.emitByte(byte(OpCloseUpvalue))
		} else {
			c.emitByte(byte(OpPop))
		}
		c.fn.locals = c.fn.locals[:len(c.fn.locals)-1]
	}
}

// --- function compilation (§4.3.4) ---

func (c *Compiler) function(kind value.FunctionKind, name string) {
	enclosing := c.fn
	fs := &funcState{
		enclosing: enclosing,
		kind:      kind,
		function: &value.ObjFunction{
			Kind:  kind,
			Chunk: &value.Chunk{},
			Name:  c.interner.Intern(name),
		},
	}

	slot0Name := ""
	if kind == value.FuncMethod || kind == value.FuncInitializer {
		slot0Name = "this"
	}
	fs.locals = append(fs.locals, localVar{name: slot0Name, depth: 0})
	c.fn = fs

	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			fs.function.Arity++
			if fs.function.Arity > maxParams {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	fn := c.endCompiler()

	c.fn = enclosing
	constIdx := c.makeConstant(fn)
	c.emitBytes(byte(OpClosure), constIdx)
	for _, up := range fs.upvalues {
		isLocal := byte(0)
		if up.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(up.index)
	}
}

// endCompiler emits the implicit return and finalizes the current
// function's chunk (§4.3.4). Scopes are not explicitly ended; the entire
// funcState is simply discarded by the caller.
func (c *Compiler) endCompiler() *value.ObjFunction {
	c.emitReturn()
	return c.fn.function
}

// emitReturn emits the implicit return at the end of a function body: slot
// 0 (the receiver) for an initializer, nil otherwise (§4.3.5).
func (c *Compiler) emitReturn() {
	if c.fn.kind == value.FuncInitializer {
		c.emitBytes(byte(OpGetLocal), 0)
	} else {
		c.emitByte(byte(OpNil))
	}
	c.emitByte(byte(OpReturn))
}

// --- bytecode emission ---

func (c *Compiler) currentChunk() *value.Chunk { return c.fn.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

// emitJump writes op plus two 0xFF placeholder bytes and returns the offset
// of the first placeholder byte, for patchJump to later overwrite (§4.3.5).
func (c *Compiler) emitJump(op Opcode) int {
	c.emitByte(byte(op))
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

// patchJump overwrites the placeholder at offset with the distance from
// just past the placeholder to the current end of code (§4.3.5).
func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 65535 {
		c.error_("Too much code to jump over.")
		return
	}
	code := c.currentChunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

// emitLoop writes OP_LOOP plus a 16-bit backward offset computed so the VM
// subtracts it from ip to reach loopStart (§4.3.5).
func (c *Compiler) emitLoop(loopStart int) {
	c.emitByte(byte(OpLoop))
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 65535 {
		c.error_("Loop body too large.")
		return
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, ok := c.currentChunk().AddConstant(v)
	if !ok {
		c.error_("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitBytes(byte(OpConstant), c.makeConstant(v))
}
