// SPDX-License-Identifier: MIT

package httpx

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Package-level helpers of net/http that go through http.DefaultClient,
// which has no timeout.
var defaultClientHelpers = []string{"DefaultClient", "Get", "Head", "Post", "PostForm"}

// TestNoDefaultClientUsage keeps every request to Paperless on a client
// built here, so timeouts and tracing apply everywhere.
func TestNoDefaultClientUsage(t *testing.T) {
	repoRoot := filepath.Join("..", "..", "..")
	self, err := filepath.Abs(".")
	require.NoError(t, err)

	var violations []string
	fset := token.NewFileSet()
	for _, root := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(repoRoot, root), func(path string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case d.IsDir() && d.Name() == "testdata":
				return filepath.SkipDir
			case d.IsDir(), !strings.HasSuffix(path, ".go"), strings.HasSuffix(path, "_test.go"):
				return nil
			}
			file, err := parser.ParseFile(fset, path, nil, 0)
			if err != nil {
				return err
			}
			dir, _ := filepath.Abs(filepath.Dir(path))
			violations = append(violations, httpMisuse(fset, file, dir == self)...)
			return nil
		})
		require.NoError(t, err, "scan %s", root)
	}

	slices.Sort(violations)
	assert.Empty(t, violations, "use httpx.NewClient or httpx.NewTracedClient instead")
}

// httpMisuse lists uses of the default client and, outside this package,
// hand-built http.Client values.
func httpMisuse(fset *token.FileSet, file *ast.File, inHTTPX bool) []string {
	var out []string
	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			if isHTTP(n.X) && slices.Contains(defaultClientHelpers, n.Sel.Name) {
				out = append(out, fset.Position(n.Pos()).String()+": http."+n.Sel.Name)
			}
		case *ast.CompositeLit:
			if sel, ok := n.Type.(*ast.SelectorExpr); ok && !inHTTPX && isHTTP(sel.X) && sel.Sel.Name == "Client" {
				out = append(out, fset.Position(n.Pos()).String()+": http.Client literal")
			}
		}
		return true
	})
	return out
}

func isHTTP(x ast.Expr) bool {
	ident, ok := x.(*ast.Ident)
	return ok && ident.Name == "http"
}
