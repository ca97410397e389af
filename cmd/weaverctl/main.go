// Command weaverctl transforms JavaScript source files against a YAML
// instrumentation catalog, printing the rewritten source to stdout (or,
// with -w, writing it back over the source file); a failure report goes
// to stderr.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/orchestrion-go/weaver/internal/cache"
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
	weaver "github.com/orchestrion-go/weaver/pkg/embed"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-w] [-cache=<path>] [-module-flag=module|script] <config.yaml> <module-name> <module-version> <source.js>\n", os.Args[0])
		os.Exit(1)
	}

	if os.Args[1] == "-version" || os.Args[1] == "--version" {
		fmt.Println(config.Version)
		return
	}

	write := false
	moduleFlag := jsparse.Unknown
	cachePath := ""
	args := os.Args[1:]
	var rest []string
	for _, arg := range args {
		switch {
		case arg == "-w":
			write = true
		case strings.HasPrefix(arg, "-module-flag="):
			moduleFlag = parseModuleFlag(strings.TrimPrefix(arg, "-module-flag="))
		case strings.HasPrefix(arg, "-cache="):
			cachePath = strings.TrimPrefix(arg, "-cache=")
		default:
			rest = append(rest, arg)
		}
	}

	if len(rest) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-w] [-cache=<path>] [-module-flag=module|script] <config.yaml> <module-name> <module-version> <source.js>\n", os.Args[0])
		os.Exit(1)
	}
	configPath, moduleName, moduleVersion, sourcePath := rest[0], rest[1], rest[2], rest[3]

	runID := uuid.NewString()

	if !config.HasSourceExt(sourcePath) {
		fmt.Fprintf(os.Stderr, "%s: %s: not a recognized JavaScript source extension (want one of %v)\n", cprefix(runID), sourcePath, config.SourceFileExtensions)
		os.Exit(1)
	}

	cfgData, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: reading config: %s\n", cprefix(runID), err)
		os.Exit(1)
	}

	engine, err := weaver.NewFromYAML(cfgData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: loading config: %s\n", cprefix(runID), err)
		os.Exit(1)
	}

	var resultCache *cache.Cache
	if cachePath != "" {
		resultCache, err = cache.Open(cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: opening cache: %s\n", cprefix(runID), err)
			os.Exit(1)
		}
		defer resultCache.Close()
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: reading source: %s\n", cprefix(runID), err)
		os.Exit(1)
	}

	result, err := transformWithCache(engine, resultCache, sourcePath, source, moduleName, moduleVersion, moduleFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: transform: %s\n", cprefix(runID), err)
		os.Exit(1)
	}
	if len(result.Failures) > 0 {
		reportFailures(runID, result)
		os.Exit(1)
	}

	if write {
		if err := os.WriteFile(sourcePath, result.Output, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: writing output: %s\n", cprefix(runID), err)
			os.Exit(1)
		}
		return
	}
	os.Stdout.Write(result.Output)
}

// transformWithCache serves a prior Transform result out of resultCache
// when the (module, version, path, source) identity matches, and stores
// the outcome back after a fresh transform. resultCache may be nil, in
// which case every call transforms directly.
func transformWithCache(engine *weaver.Engine, resultCache *cache.Cache, path string, source []byte, moduleName, moduleVersion string, flag jsparse.ModuleFlag) (orchestrator.Result, error) {
	if resultCache != nil {
		if cached, ok, err := resultCache.Lookup(moduleName, moduleVersion, path, source); err == nil && ok {
			return cached, nil
		}
	}
	result, err := engine.Transform(path, source, moduleName, moduleVersion, flag)
	if err != nil {
		return orchestrator.Result{}, err
	}
	if resultCache != nil {
		_ = resultCache.Store(moduleName, moduleVersion, path, source, result)
	}
	return result, nil
}

func reportFailures(runID string, result weaver.Result) {
	if len(result.Failures) == 0 {
		return
	}
	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "%s: %s\n", cred(runID), f.Error())
	}
}

func parseModuleFlag(s string) jsparse.ModuleFlag {
	switch s {
	case "module":
		return jsparse.Module
	case "script":
		return jsparse.Script
	default:
		return jsparse.Unknown
	}
}

// --- minimal TTY color support for run-id prefixes ---

func detectColorLevel() int {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return 0
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return 0
	}
	if os.Getenv("TERM") == "dumb" {
		return 0
	}
	return 1
}

func cprefix(runID string) string {
	if detectColorLevel() == 0 {
		return "[" + runID + "]"
	}
	return "\033[36m[" + runID + "]\033[39m"
}

func cred(runID string) string {
	if detectColorLevel() == 0 {
		return "[" + runID + "]"
	}
	return "\033[31m[" + runID + "]\033[39m"
}
