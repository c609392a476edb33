package service

import (
	"strings"
	"text/template"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

var evaluationPrompt = template.Must(template.New("evaluation").Parse(`## Classifier Service: Conversation Evaluation

**Objective**: You are an expert classifier that always chooses correctly.

### Assistant Instructions
{{ if .Instructions }}{{ .Instructions }}{{ else }}(none){{ end }}

### Conversation History
{{- range .History }}
Role: {{ .Role }}
Message: {{ .Content }}
{{- end }}
{{- if not .History }}
(no earlier messages)
{{- end }}

### Labels
Choose exactly one category and, when the category lists topics, one of its topics.
{{- range .Labels }}
- Category: {{ .Category.Name }}{{ if .Category.Description }} ({{ .Category.Description }}){{ end }}
{{- range .Topics }}
  - Topic: {{ .Name }}
{{- end }}
{{- end }}

### Classification
- Answered: the reply answers the user query.
- Not Answered: the reply does not answer the user query.
- Not Allowed: the query is outside what the assistant may discuss.

### Data
User query:
{{ .Query }}

Assistant reply:
{{ .Reply }}

### Response Format
Respond with a single JSON object and nothing else:
{"category": "<category name>", "topic": "<topic name or empty>", "classification": "Answered | Not Answered | Not Allowed", "sentiment": <number between -1 and 1 for the user query>}
`))

type promptData struct {
	Instructions string
	History      []domain.Message
	Labels       []domain.LabelSet
	Query        string
	Reply        string
}

func renderPrompt(data promptData) (string, error) {
	var b strings.Builder
	if err := evaluationPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
