package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"os"

	"github.com/dave/jennifer/jen"

	"github.com/KromDaniel/resafe/internal/config"
)

var (
	// ErrInvalidPackage is returned when the package name is not a Go identifier.
	ErrInvalidPackage = errors.New("codegen: invalid package name")

	// ErrNoPatterns is returned when there is nothing to guard.
	ErrNoPatterns = errors.New("codegen: no patterns")
)

// GuardConfig describes a generated guard test.
type GuardConfig struct {
	// Package is the package clause of the generated file.
	Package string

	// Name names the test function and pattern table. Empty selects DefaultName.
	Name string

	// Config supplies the patterns and their thresholds.
	Config *config.Config

	// OutputFile is where WriteGuardTest saves the result.
	OutputFile string
}

func (g GuardConfig) name() string {
	if g.Name == "" {
		return DefaultName
	}
	return g.Name
}

// Validate checks if the guard configuration is usable.
func (g GuardConfig) Validate() error {
	if !token.IsIdentifier(g.Package) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, g.Package)
	}
	if !token.IsIdentifier(g.name()) {
		return fmt.Errorf("codegen: invalid test name %q", g.name())
	}
	if g.Config == nil || len(g.Config.Patterns) == 0 {
		return ErrNoPatterns
	}
	return nil
}

// GenerateGuardTest renders a _test.go file that re-checks every configured
// pattern with resafe.Check and fails when one becomes unsafe.
func GenerateGuardTest(g GuardConfig) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	f := jen.NewFile(g.Package)
	f.HeaderComment("Code generated by resafe gen. DO NOT EDIT.")
	f.ImportName(ResafeImport, "resafe")

	table := TableName(g.name())
	f.Var().Id(table).Op("=").Index().Struct(
		jen.Id(FieldName).String(),
		jen.Id(FieldPattern).String(),
		jen.Id(FieldThreshold).Float64(),
	).ValuesFunc(func(grp *jen.Group) {
		for _, p := range g.Config.Patterns {
			grp.Values(jen.Dict{
				jen.Id(FieldName):      jen.Lit(p.Name),
				jen.Id(FieldPattern):   jen.Lit(p.Pattern),
				jen.Id(FieldThreshold): jen.Lit(g.Config.EffectiveThreshold(p)),
			})
		}
	})

	f.Comment(fmt.Sprintf("%s fails when a guarded pattern is rejected or exceeds its threshold.", TestFuncName(g.name())))
	f.Func().Id(TestFuncName(g.name())).Params(testingT()).Block(
		jen.For(jen.List(jen.Id("_"), jen.Id(CaseName)).Op(":=").Range().Id(table)).Block(
			jen.Id(TName).Dot("Run").Call(
				jen.Id(CaseName).Dot(FieldName),
				jen.Func().Params(testingT()).Block(guardBody()...),
			),
		),
	)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render guard test: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format guard test: %w", err)
	}
	return formatted, nil
}

// WriteGuardTest generates the guard test and saves it to g.OutputFile.
func WriteGuardTest(g GuardConfig) error {
	if g.OutputFile == "" {
		return errors.New("codegen: output file is required")
	}

	src, err := GenerateGuardTest(g)
	if err != nil {
		return err
	}

	if err := os.WriteFile(g.OutputFile, src, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func testingT() jen.Code {
	return jen.Id(TName).Op("*").Qual(TestingImport, "T")
}

func guardBody() []jen.Code {
	tt := func(field string) *jen.Statement { return jen.Id(CaseName).Dot(field) }

	return []jen.Code{
		jen.List(jen.Id(ResultName), jen.Err()).Op(":=").Qual(ResafeImport, "Check").Call(
			tt(FieldPattern),
			jen.Qual(ResafeImport, "Options").Values(jen.Dict{
				jen.Id("Threshold"): tt(FieldThreshold),
				jen.Id("Silent"):    jen.True(),
			}),
		),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Id(TName).Dot("Fatalf").Call(jen.Lit("check %q: %v"), tt(FieldPattern), jen.Err()),
		),
		jen.If(jen.Op("!").Id(ResultName).Dot("Safe")).Block(
			jen.Id(TName).Dot("Errorf").Call(
				jen.Lit("pattern %q is unsafe: spectral radius %v exceeds %v"),
				tt(FieldPattern),
				jen.Id(ResultName).Dot("Radius"),
				tt(FieldThreshold),
			),
		),
	}
}
