package vm_test

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/loxvm/loxvm/internal/filetest"
	"github.com/loxvm/loxvm/lang/vm"
)

var testUpdateVMTests = flag.Bool("test.update-vm-tests", false, "If set, replace expected VM golden-file test results with actual results.")

// TestScripts runs every .lox file under testdata/in to completion and
// diffs its stdout and stderr against testdata/out's golden files, the same
// scan-then-diff shape the teacher's scanner/parser/resolver packages use.
func TestScripts(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lox") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			var out, errOut bytes.Buffer
			machine := vm.New()
			machine.Stdout = &out

			if err := machine.Interpret(string(src)); err != nil {
				fmt.Fprintln(&errOut, err)
			}

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateVMTests)
			filetest.DiffErrors(t, fi, errOut.String(), resultDir, testUpdateVMTests)
		})
	}
}
