//go:build mage

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/sh"
)

// listFormat prints one line per package: import path, directory, then the
// production and test file lists.
const listFormat = `{{.ImportPath}}|{{.Dir}}|{{join .GoFiles ","}}|{{join .TestGoFiles ","}},{{join .XTestGoFiles ","}}`

// Stats prints lines of Go code for each package of the module, split into
// production and test code.
func Stats() error {
	module, err := sh.Output(binGo, "list", "-m")
	if err != nil {
		return err
	}
	out, err := sh.Output(binGo, "list", "-f", listFormat, "./...")
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PACKAGE\tPROD\tTEST\t")
	var prodTotal, testTotal int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		pkg := strings.TrimPrefix(strings.TrimPrefix(parts[0], module), "/")
		if pkg == "" {
			pkg = "."
		}
		prod, err := countFiles(parts[1], parts[2])
		if err != nil {
			return err
		}
		test, err := countFiles(parts[1], parts[3])
		if err != nil {
			return err
		}
		prodTotal += prod
		testTotal += test
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", pkg, prod, test)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t\n", prodTotal, testTotal)
	return tw.Flush()
}

// countFiles sums the lines of a comma-separated list of files in dir.
func countFiles(dir, files string) (int, error) {
	total := 0
	for _, name := range strings.Split(files, ",") {
		if name == "" {
			continue
		}
		n, err := countLines(filepath.Join(dir, name))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
