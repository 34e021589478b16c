package adcontext

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rafaeljc/adentity/internal/form"
)

// ExpressionPlugin holds a boolean CEL expression over the request context,
// exposed to the expression as ctx (map of string to string). Saving only
// type-checks it; evaluation belongs to whatever serves the ads.
type ExpressionPlugin struct {
	env    *cel.Env
	envErr error
}

var _ Plugin = (*ExpressionPlugin)(nil)

// NewExpressionPlugin prepares the CEL environment expressions are checked against.
func NewExpressionPlugin() *ExpressionPlugin {
	env, err := cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)))
	return &ExpressionPlugin{env: env, envErr: err}
}

func (p *ExpressionPlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textarea("expression", "Expression").
			WithDefault(form.Values(current).String("expression")).
			WithDescription(`CEL expression returning a boolean, e.g. ctx["section"] == "sports".`),
	}
}

func (p *ExpressionPlugin) MassageSettings(submitted Settings) (Settings, error) {
	expr := form.Values(submitted).String("expression")
	if expr == "" {
		return nil, invalidf("expression", "enter an expression")
	}
	if _, err := p.compile(expr); err != nil {
		return nil, invalidf("expression", "%v", err)
	}
	return Settings{"expression": expr}, nil
}

func (p *ExpressionPlugin) compile(expr string) (cel.Program, error) {
	if p.envErr != nil {
		return nil, fmt.Errorf("cel environment: %w", p.envErr)
	}
	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	return p.env.Program(ast)
}
