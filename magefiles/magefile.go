//go:build mage

// Package main provides build targets for the typedsql project using Mage.
//
// Usage:
//
//	mage build            Compile the typedsql binary to bin/
//	mage install          Install typedsql to GOPATH/bin
//	mage clean            Remove build artifacts
//	mage test:all         Run every test
//	mage test:unit        Run tests, skipping the CLI package
//	mage test:run -run X  Run tests matching X (flags follow the target)
//	mage test:cover       Write coverage.out and print the summary
//	mage lint             Run golangci-lint
//	mage stats            Print Go line counts as one JSON record
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "typedsql"
	binaryDir  = "bin"
	cmdDir     = "./cmd/typedsql"
	versionVar = "github.com/mesh-intelligence/typedsql/internal/cli.Version"
)

// Build compiles the typedsql binary to bin/, stamping the version from
// git describe when available.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v"}
	if v := gitVersion(); v != "" {
		args = append(args, "-ldflags", fmt.Sprintf("-X %s=%s", versionVar, v))
	}
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunV(binGo, args...)
}

// gitVersion returns the tag-based version without a leading v, or "".
func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "v")
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverFile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
