package main

import (
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func testscriptMain() int {
	main()
	return 0
}

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"diskii": testscriptMain,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string) {
			"mkzero": mkzero,
		},
	})
}

// mkzero writes a zero-filled file of the given size: a stand-in for
// a disk image fixture too large to carry in a txtar script as
// literal text.
func mkzero(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: mkzero name size")
	}
	size, err := strconv.Atoi(args[1])
	if err != nil {
		ts.Fatalf("mkzero: %v", err)
	}
	if err := os.WriteFile(ts.MkAbs(args[0]), make([]byte, size), 0644); err != nil {
		ts.Fatalf("mkzero: %v", err)
	}
	fmt.Fprintf(ts.Stdout(), "wrote %d zero bytes to %s\n", size, args[0])
}
