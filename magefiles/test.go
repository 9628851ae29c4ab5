//go:build mage

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverFile = "coverage.out"

// Test groups the test targets.
type Test mg.Namespace

// All runs every test with the race detector.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the library tests, skipping the CLI package whose tests
// create stores under temp directories.
func (Test) Unit() error {
	pkgs, err := packages(func(pkg string) bool {
		return !strings.HasSuffix(pkg, "/internal/cli") && !strings.HasSuffix(pkg, "/magefiles")
	})
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return sh.RunV(binGo, append([]string{"test"}, pkgs...)...)
}

// Run runs the tests selected by flags after the target name:
// -run <regexp>, -pkg <pattern> and -v.
func (Test) Run() error {
	fs := flag.NewFlagSet("test:run", flag.ContinueOnError)
	run := fs.String("run", "", "test name regexp")
	pkg := fs.String("pkg", "./...", "package pattern")
	verbose := fs.Bool("v", false, "verbose output")
	if ok, err := parseTargetFlags(fs); !ok {
		return err
	}

	args := []string{"test"}
	if *verbose {
		args = append(args, "-v")
	}
	if *run != "" {
		args = append(args, "-run", *run)
	}
	return sh.RunV(binGo, append(args, *pkg)...)
}

// Cover writes coverage.out and prints per-function coverage totals.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	out, err := sh.Output(binGo, "tool", "cover", "-func="+coverFile)
	if err != nil {
		return err
	}
	lines := strings.Split(out, "\n")
	fmt.Println(lines[len(lines)-1])
	return nil
}

// packages lists module packages accepted by keep.
func packages(keep func(string) bool) ([]string, error) {
	out, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for pkg := range strings.SplitSeq(out, "\n") {
		if pkg != "" && keep(pkg) {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}
