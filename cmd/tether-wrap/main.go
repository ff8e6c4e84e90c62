// Command tether-wrap generates binding registration files for Go packages.
//
// Usage:
//
//	tether-wrap                      # all packages from tether.toml
//	tether-wrap encoding/json       # single package, ad-hoc
//	tether-wrap --output ./gen pkg  # custom output dir
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/tethervm/tether/manifest"
	"github.com/tethervm/tether/wrapgen"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("tether-wrap")

type wrapTarget struct {
	ImportPath string
	Include    []string
}

func main() {
	var outputDir string
	prefix := "go."
	verbosity := 0

	args := os.Args[1:]
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--output", "-o":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --output requires a directory path")
				os.Exit(1)
			}
			outputDir = args[i+1]
			i++
		case "--prefix", "-p":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --prefix requires a value")
				os.Exit(1)
			}
			prefix = args[i+1]
			i++
		case "--verbose", "-v":
			verbosity = 1
		default:
			remaining = append(remaining, args[i])
		}
	}

	commonlog.Configure(verbosity, nil)

	var targets []wrapTarget
	if len(remaining) > 0 {
		// Ad-hoc package wrapping from the command line.
		for _, pkg := range remaining {
			targets = append(targets, wrapTarget{ImportPath: pkg})
		}
	} else {
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			log.Errorf("loading manifest: %s", err.Error())
			os.Exit(1)
		}
		if m == nil {
			fmt.Fprintln(os.Stderr, "Error: no tether.toml found and no packages specified")
			fmt.Fprintln(os.Stderr, "Usage: tether-wrap [packages...] or configure [wrap] in tether.toml")
			os.Exit(1)
		}
		if len(m.Wrap.Packages) == 0 {
			fmt.Fprintln(os.Stderr, "No [[wrap.packages]] configured in tether.toml")
			os.Exit(1)
		}
		if outputDir == "" {
			outputDir = m.OutputDir()
		}
		prefix = m.Wrap.Prefix
		for _, pkg := range m.Wrap.Packages {
			targets = append(targets, wrapTarget{ImportPath: pkg.Import, Include: pkg.Include})
		}
	}

	if outputDir == "" {
		outputDir = ".tether/wrap"
	}

	for _, target := range targets {
		if err := wrapPackage(target, outputDir, prefix); err != nil {
			log.Errorf("wrapping %s: %s", target.ImportPath, err.Error())
			os.Exit(1)
		}
	}
	log.Noticef("wrapped %d package(s) to %s", len(targets), outputDir)
}

func wrapPackage(target wrapTarget, outputDir, prefix string) error {
	log.Infof("introspecting %s", target.ImportPath)

	var filter map[string]bool
	if len(target.Include) > 0 {
		filter = make(map[string]bool, len(target.Include))
		for _, name := range target.Include {
			filter[name] = true
		}
	}

	model, err := wrapgen.IntrospectPackage(target.ImportPath, filter)
	if err != nil {
		return err
	}

	code, err := wrapgen.GenerateBindings(model, prefix)
	if err != nil {
		return err
	}

	dir := filepath.Join(outputDir, "wrap_"+model.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, "bindings.go")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Infof("wrote %s", path)
	return nil
}
