// Package domain defines the core domain models for the assistants link service.
package domain

import "strings"

// Role is the author of a message.
type Role string

const (
	RoleSystem           Role = "SYSTEM"
	RoleUser             Role = "USER"
	RoleAssistant        Role = "ASSISTANT"
	RoleFunctionRequest  Role = "FUNCTION_REQUEST"
	RoleFunctionResponse Role = "FUNCTION_RESPONSE"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunctionRequest, RoleFunctionResponse:
		return true
	}
	return false
}

// CategoryType tags a category as operator-defined or part of the default set.
type CategoryType string

const (
	CategoryTypeCustom  CategoryType = "CUSTOM"
	CategoryTypeDefault CategoryType = "DEFAULT"
)

func (t CategoryType) Valid() bool {
	return t == CategoryTypeCustom || t == CategoryTypeDefault
}

// DatasourceType represents the kind of a datasource.
type DatasourceType string

const (
	DatasourceTypeDocument DatasourceType = "DOCUMENT"
	DatasourceTypeEndpoint DatasourceType = "ENDPOINT"
	DatasourceTypeFunction DatasourceType = "FUNCTION"
)

func (t DatasourceType) Valid() bool {
	switch t {
	case DatasourceTypeDocument, DatasourceTypeEndpoint, DatasourceTypeFunction:
		return true
	}
	return false
}

// Classification is the evaluator's verdict on whether a reply answered the query.
type Classification string

const (
	ClassificationAnswered    Classification = "Answered"
	ClassificationNotAnswered Classification = "Not Answered"
	ClassificationNotAllowed  Classification = "Not Allowed"
)

// Classifications lists every classification in display order.
var Classifications = []Classification{
	ClassificationAnswered,
	ClassificationNotAnswered,
	ClassificationNotAllowed,
}

// ParseClassification matches s against the known classifications,
// ignoring case and surrounding whitespace.
func ParseClassification(s string) (Classification, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Classifications {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// EvaluationOutcome records how an evaluation attempt ended.
type EvaluationOutcome string

const (
	EvaluationCategorized  EvaluationOutcome = "categorized"
	EvaluationSkipped      EvaluationOutcome = "skipped"
	EvaluationInvalidLabel EvaluationOutcome = "invalid_label"
	EvaluationFailed       EvaluationOutcome = "failed"
)

// Metadata keys shared between the gateway, the evaluator and analytics.
const (
	MetaOpenAI         = "openai"
	MetaAssistantID    = "assistantId"
	MetaThreadID       = "threadId"
	MetaVectorStoreID  = "vectorStoreId"
	MetaMessageID      = "messageId"
	MetaRunID          = "runId"
	MetaFileID         = "id"
	MetaFileBytes      = "bytes"
	MetaFilename       = "filename"
	MetaContentType    = "content_type"
	MetaClassification = "classification"
	MetaSentiment      = "sentiment"
	MetaQueryMessageID = "queryMessageId"
	MetaError          = "error"
)

// DefaultAssistantModel is used when an assistant is created without a model.
const DefaultAssistantModel = "gpt-3.5-turbo"
