//go:build mage

// Package main provides build targets for the worldstore project using Mage.
//
// Usage:
//
//	mage build     Compile the worldstore binary to bin/
//	mage test      Run all tests
//	mage cover     Run tests with coverage
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
//	mage install   Install worldstore to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "worldstore"
	binaryDir  = "bin"
	cmdDir     = "./cmd/worldstore"
)

// Build compiles the worldstore binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Cover runs all tests with coverage reporting.
func Cover() error {
	return sh.RunV(binGo, "test", "-cover", "-coverprofile=coverage.out", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.Rm("coverage.out")
}

// Install installs the worldstore binary to GOPATH/bin.
func Install() error {
	return sh.RunV(binGo, "install", cmdDir)
}
