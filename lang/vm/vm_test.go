package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxvm/loxvm/lang/vm"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New()
	machine.Stdout = &out
	err := machine.Interpret(src)
	return out.String(), err
}

// §8 end-to-end scenarios.

func TestArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `var a = "hi"; var b = "!" ; print a + b;`)
	require.NoError(t, err)
	require.Equal(t, "hi!\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestClosureCapturesAndMutatesUpvalue(t *testing.T) {
	out, err := run(t, `
		fun make() {
			var x = 1;
			fun inc() {
				x = x + 1;
				return x;
			}
			return inc;
		}
		var f = make();
		print f();
		print f();
		print f();
	`)
	require.NoError(t, err)
	require.Equal(t, "2\n3\n4\n", out)
}

func TestMethodCallAndThis(t *testing.T) {
	out, err := run(t, `
		class A {
			greet() {
				print "hi " + this.name;
			}
		}
		var a = A();
		a.name = "lox";
		a.greet();
	`)
	require.NoError(t, err)
	require.Equal(t, "hi lox\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
		class A {
			greet() {
				print "hi " + this.name;
			}
		}
		class B < A {
			greet() {
				super.greet();
				print "!";
			}
		}
		var b = B();
		b.name = "sub";
		b.greet();
	`)
	require.NoError(t, err)
	require.Equal(t, "hi sub\n!\n", out)
}

// Negative scenarios.

func TestReadLocalInOwnInitializerIsCompileError(t *testing.T) {
	_, err := run(t, `{ var a = a; }`)
	require.Error(t, err)
	var ce *vm.CompileError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, err.Error(), "Can't read local variable in its own initializer.")
}

func TestReturnAtTopLevelIsCompileError(t *testing.T) {
	_, err := run(t, `return 1;`)
	require.Error(t, err)
	var ce *vm.CompileError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestSubtractingNumberFromStringIsRuntimeError(t *testing.T) {
	_, err := run(t, `"a" - 1;`)
	require.Error(t, err)
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "Operands must be numbers.", re.Message)
	require.Len(t, re.Trace, 1, "single top-level frame")
	require.True(t, strings.HasSuffix(re.Trace[0], "in script"))
}

func TestDeepRecursionOverflowsStack(t *testing.T) {
	_, err := run(t, `
		fun recurse(n) {
			return recurse(n + 1);
		}
		recurse(0);
	`)
	require.Error(t, err)
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "Stack overflow.", re.Message)
}

// Additional coverage beyond the literal §8 scenarios.

func TestFieldShadowsMethodAtInvokeSite(t *testing.T) {
	out, err := run(t, `
		class Box {
			value() { return "method"; }
		}
		fun makeField() { return "field"; }
		var b = Box();
		print b.value();
		b.value = makeField;
		print b.value();
	`)
	require.NoError(t, err)
	require.Equal(t, "method\nfield\n", out)
}

func TestDivisionByZeroYieldsInfinity(t *testing.T) {
	out, err := run(t, `print 1 / 0;`)
	require.NoError(t, err)
	require.Equal(t, "+Inf\n", out)
}

func TestFalseyValues(t *testing.T) {
	out, err := run(t, `
		if (!nil) print "nil is falsey";
		if (!false) print "false is falsey";
		if (0) print "zero is truthy";
		if ("") print "empty string is truthy";
	`)
	require.NoError(t, err)
	require.Equal(t, "nil is falsey\nfalse is falsey\nzero is truthy\nempty string is truthy\n", out)
}

func TestStringInterningIdentity(t *testing.T) {
	out, err := run(t, `
		var a = "a" + "b" + "c";
		print a == "abc";
	`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestREPLSharesGlobalsAndInternerAcrossInterpretCalls(t *testing.T) {
	var out bytes.Buffer
	machine := vm.New()
	machine.Stdout = &out

	require.NoError(t, machine.Interpret(`var counter = 0;`))
	require.NoError(t, machine.Interpret(`counter = counter + 1; print counter;`))
	require.NoError(t, machine.Interpret(`counter = counter + 1; print counter;`))
	require.Equal(t, "1\n2\n", out.String())
}

func TestInitializerReturnsReceiver(t *testing.T) {
	out, err := run(t, `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
		}
		var p = Point(3, 4);
		print p.x + p.y;
	`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestGlobalNamesListsNativesAndDefinedGlobals(t *testing.T) {
	machine := vm.New()
	machine.Stdout = &bytes.Buffer{}
	require.NoError(t, machine.Interpret(`var zebra = 1; var apple = 2;`))
	require.Equal(t, []string{"apple", "clock", "str", "zebra"}, machine.GlobalNames())
}

func TestNativeClockReturnsNumber(t *testing.T) {
	out, err := run(t, `print clock() > 0;`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}
