//go:build mage

// Package main contains Mage build targets for docsmith developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "docsmith"
	cmdPkg  = "./cmd/docsmith"

	// sqliteTags enables FTS5 in mattn/go-sqlite3; the index needs it.
	sqliteTags = "sqlite_fts5"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", binDir)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-tags", sqliteTags, "-o", out, cmdPkg); err != nil {
		return errors.Wrap(err, "go build")
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs all package tests with the FTS5 build tag.
func Test() error {
	return sh.RunV("go", "test", "-tags", sqliteTags, "./...")
}

// Vet runs go vet with the same build tags as Build.
func Vet() error {
	return sh.RunV("go", "vet", "-tags", sqliteTags, "./...")
}

// Check builds the binary and validates the Markdown under docs/, if any.
func Check() error {
	mg.Deps(Build)
	if _, err := os.Stat("docs"); os.IsNotExist(err) {
		fmt.Println("No docs/ directory; nothing to check.")
		return nil
	}
	return sh.RunV(filepath.Join(binDir, binName), "check", "docs")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords("docs")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// skipDir reports whether the Go tool would ignore dir: names starting
// with "_" or "." plus testdata, and the build output.
func skipDir(path string, d fs.DirEntry) bool {
	name := d.Name()
	if path == "." {
		return false
	}
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata" || name == binDir
}

// countGoLines counts non-blank lines in Go files under root. If testOnly
// is true, only _test.go files count; otherwise only non-test files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countDocWords counts words in the .md and .yaml files under root.
func countDocWords(root string) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".yaml", ".yml":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		total += len(strings.Fields(string(data)))
		return nil
	})
	return total, err
}
