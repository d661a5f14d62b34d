package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	modulePath   = "artix"
	sharedKernel = modulePath + "/internal/shared"
)

// Only the composition root and the HTTP server may see more than one
// context.
var contextAggregators = []string{
	"internal/app/bootstrap",
	"internal/platform/httpserver",
}

// layerRule lists what a layer of a service may import besides the standard
// library and its own service packages named in ownLayers.
type layerRule struct {
	ownLayers []string
	external  []string
}

var layerRules = map[string]layerRule{
	"domain": {
		ownLayers: []string{"domain"},
		external: []string{
			sharedKernel,
			"github.com/ethereum/go-ethereum/common",
			"github.com/ethereum/go-ethereum/crypto",
		},
	},
	"application": {
		ownLayers: []string{"application", "domain", "ports"},
		external: []string{
			sharedKernel,
			"github.com/ethereum/go-ethereum/common",
			"github.com/google/uuid",
			"golang.org/x/sync",
		},
	},
	"ports": {
		ownLayers: []string{"domain"},
		external: []string{
			sharedKernel,
			"github.com/ethereum/go-ethereum/common",
		},
	},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	var violations []violation
	violations = append(violations, walk("contexts", checkServiceFile)...)
	violations = append(violations, walk("internal", checkPlatformFile)...)

	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

type importRef struct {
	path string
	line int
}

type fileChecker func(file string, imports []importRef) []violation

func walk(root string, check fileChecker) []violation {
	var out []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		file := filepath.ToSlash(path)
		imports, err := parseImports(path)
		if err != nil {
			out = append(out, violation{File: file, Line: 1, Rule: "file must parse"})
			return nil
		}
		out = append(out, check(file, imports)...)
		return nil
	})
	return out
}

func parseImports(path string) ([]importRef, error) {
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	refs := make([]importRef, 0, len(parsed.Imports))
	for _, imp := range parsed.Imports {
		refs = append(refs, importRef{
			path: strings.Trim(imp.Path.Value, `"`),
			line: fset.Position(imp.Pos()).Line,
		})
	}
	return refs, nil
}

// checkServiceFile applies to contexts/<context>/<service>/<layer>/...
func checkServiceFile(file string, imports []importRef) []violation {
	parts := strings.Split(file, "/")
	if len(parts) < 4 {
		return nil
	}
	service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
	rule, layered := layerRules[parts[3]]

	var out []violation
	for _, imp := range imports {
		add := func(reason string) {
			out = append(out, violation{File: file, Line: imp.line, Import: imp.path, Rule: reason})
		}

		if hasPrefix(imp.path, modulePath+"/contexts") && !hasPrefix(imp.path, service) {
			add("services must not import other services")
			continue
		}
		if !layered || isStdlib(imp.path) {
			continue
		}
		if strings.Contains(imp.path, "/adapters/") {
			add(parts[3] + " must not import adapters")
			continue
		}
		if !allowedInLayer(imp.path, service, rule) {
			add(parts[3] + " import is outside its allowlist")
		}
	}
	return out
}

// checkPlatformFile keeps shared and platform packages free of contexts.
func checkPlatformFile(file string, imports []importRef) []violation {
	for _, aggregator := range contextAggregators {
		if hasPrefix(file, aggregator) {
			return nil
		}
	}
	var out []violation
	for _, imp := range imports {
		if hasPrefix(imp.path, modulePath+"/contexts") {
			out = append(out, violation{
				File:   file,
				Line:   imp.line,
				Import: imp.path,
				Rule:   "platform code must not depend on contexts",
			})
		}
	}
	return out
}

func allowedInLayer(importPath, service string, rule layerRule) bool {
	for _, layer := range rule.ownLayers {
		if hasPrefix(importPath, service+"/"+layer) {
			return true
		}
	}
	for _, prefix := range rule.external {
		if hasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
