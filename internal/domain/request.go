package domain

import "time"

// ChatMessage is the user input of a chat turn.
type ChatMessage struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// ChatRequest is the body of POST /assistants/:id/chat.
type ChatRequest struct {
	ConversationID string      `json:"conversation_id,omitempty"`
	Message        ChatMessage `json:"message"`
}

// ChatResponse is the data returned for a chat turn.
type ChatResponse struct {
	Message        Message     `json:"message"`
	ConversationID string      `json:"conversation_id"`
	Evaluation     *Evaluation `json:"-"`
}

// AssistantInput carries the writable assistant fields.
type AssistantInput struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Model        string   `json:"model,omitempty"`
	Metadata     Metadata `json:"metadata,omitempty"`
}

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        CategoryType `json:"type,omitempty"`
}

// DatasourceInput carries the writable datasource fields.
type DatasourceInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        DatasourceType `json:"type,omitempty"`
	Metadata    Metadata       `json:"metadata,omitempty"`
}

// DocumentUpload is a file submitted as a document datasource.
type DocumentUpload struct {
	Name        string
	Description string
	Filename    string
	ContentType string
	Data        []byte
}

// AssistantCategoryRow is one result of the categories-for-assistants query.
// AssistantID is empty for DEFAULT categories.
type AssistantCategoryRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AssistantID string `json:"assistant_id,omitempty"`
}

// TopicCount aggregates labelled messages per assistant, category and topic.
type TopicCount struct {
	AssistantID    string `json:"assistant_id"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	TopicID        string `json:"topic_id"`
	TopicName      string `json:"topic_name"`
	TopicCount     int64  `json:"topic_count"`
	NumAnswered    int64  `json:"num_answered"`
	NumNotAnswered int64  `json:"num_not_answered"`
	NumNotAllowed  int64  `json:"num_not_allowed"`
}

// TopicMessageQuery filters the topic-messages analytics query.
type TopicMessageQuery struct {
	TopicID      string           `json:"topic_id"`
	CategoryID   string           `json:"category_id"`
	AssistantIDs []string         `json:"assistant_ids"`
	AnswerTypes  []Classification `json:"answer_types,omitempty"`
}

// TopicMessage is one row of the topic-messages analytics query.
type TopicMessage struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Classification string    `json:"classification,omitempty"`
	Sentiment      *float64  `json:"sentiment,omitempty"`
	ConversationID string    `json:"conversation_id"`
	AssistantID    string    `json:"assistant_id"`
}

// ConversationDetail is a conversation with its messages and assistant.
type ConversationDetail struct {
	Conversation
	Assistant *Assistant `json:"assistant,omitempty"`
}

// CategorySeed describes one default category and its topics.
type CategorySeed struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Topics      []string `yaml:"topics" json:"topics,omitempty"`
}

// SeedResult counts the rows created by a seed run.
type SeedResult struct {
	Categories int `json:"categories"`
	Topics     int `json:"topics"`
	Links      int `json:"links"`
}
