// Package policy decides which hosted tools an assistant gets from its datasources.
package policy

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.datasource_tools.tools"),
		rego.Module("datasource_tools.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path
// is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

type datasourceInput struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// Tools returns the sorted set of hosted tools enabled by the datasources.
func (e *Engine) Tools(ctx context.Context, datasources []domain.Datasource) ([]string, error) {
	in := make([]datasourceInput, 0, len(datasources))
	for _, d := range datasources {
		in = append(in, datasourceInput{
			Type:        string(d.Type),
			ContentType: d.ContentType(),
			Filename:    d.Metadata.Get(domain.MetaFilename).Str(),
		})
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"datasources": in}))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	tools := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected tool value %v", v)
		}
		tools = append(tools, s)
	}
	sort.Strings(tools)
	return tools, nil
}

// DefaultPolicy is the default policy content. CSV documents go to the
// code interpreter, every other document to file search.
const DefaultPolicy = `
package datasource_tools

import rego.v1

documents contains d if {
	some d in input.datasources
	d.type == "DOCUMENT"
}

tools contains "code_interpreter" if {
	some d in documents
	d.content_type == "text/csv"
}

tools contains "file_search" if {
	some d in documents
	d.content_type != "text/csv"
}
`
