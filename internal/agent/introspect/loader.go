// Package introspect turns a Go package into the bounded text summary the
// assistant reasons over.
package introspect

import (
	"context"
	"errors"
	"fmt"
	"go/doc"
	"go/token"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/sagely-dev/sagely/internal/agent/model"
)

// Loader resolves a package import path into its summary.
type Loader interface {
	Load(ctx context.Context, name string) (*model.ModuleSummary, error)
}

// PackagesLoader resolves import paths the way the go command does, relative
// to Dir (the working directory when empty).
type PackagesLoader struct {
	Dir string
}

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedImports

func (l PackagesLoader) Load(ctx context.Context, name string) (*model.ModuleSummary, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("empty module name")
	}

	fset := token.NewFileSet()
	cfg := &packages.Config{
		Context: ctx,
		Dir:     l.Dir,
		Mode:    loadMode,
		Fset:    fset,
		Tests:   false,
	}
	pkgs, err := packages.Load(cfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to execute loader: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no package named %s", name)
	}

	pkg := pkgs[0]
	if len(pkg.Syntax) == 0 {
		if len(pkg.Errors) > 0 {
			return nil, errors.New(pkg.Errors[0].Msg)
		}
		return nil, fmt.Errorf("no Go files in %s", name)
	}

	docPkg, err := doc.NewFromFiles(fset, pkg.Syntax, pkg.PkgPath)
	if err != nil {
		return nil, fmt.Errorf("read package docs: %w", err)
	}
	return summarize(name, docPkg, pkg.Imports), nil
}

func summarize(name string, p *doc.Package, imports map[string]*packages.Package) *model.ModuleSummary {
	s := &model.ModuleSummary{
		ModuleName:    name,
		Documentation: strings.TrimSpace(p.Doc),
	}

	for _, f := range p.Funcs {
		s.Functions = append(s.Functions, model.Member{Name: f.Name, Doc: strings.TrimSpace(f.Doc)})
	}
	for _, t := range p.Types {
		s.Classes = append(s.Classes, model.Member{Name: t.Name, Doc: strings.TrimSpace(t.Doc)})
		// constructors are grouped under their result type by go/doc
		for _, f := range t.Funcs {
			s.Functions = append(s.Functions, model.Member{Name: f.Name, Doc: strings.TrimSpace(f.Doc)})
		}
	}
	sortMembers(s.Functions)
	sortMembers(s.Classes)

	for path := range imports {
		s.Submodules = append(s.Submodules, path)
	}
	sort.Strings(s.Submodules)
	return s
}

func sortMembers(m []model.Member) {
	sort.Slice(m, func(i, j int) bool { return m[i].Name < m[j].Name })
}
