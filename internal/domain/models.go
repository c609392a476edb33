package domain

import "time"

// Timestamps is embedded in every entity. DeletedAt is set on soft delete.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether the row has not been soft-deleted.
func (t Timestamps) Active() bool {
	return t.DeletedAt == nil
}

// Assistant is a configured conversational agent definition.
type Assistant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Model        string   `json:"model"`
	Metadata     Metadata `json:"metadata"`
	Timestamps
}

// UpstreamID returns the hosted assistant id recorded in metadata.
func (a *Assistant) UpstreamID() string {
	return a.Metadata.Get(MetaOpenAI, MetaAssistantID).Str()
}

// Category is the first level of the evaluation label.
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        CategoryType `json:"type"`
	Timestamps
}

// Topic is the second level of the evaluation label. Names are unique.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Timestamps
}

// Datasource is a document or external resource an assistant can draw context from.
type Datasource struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        DatasourceType `json:"type"`
	Metadata    Metadata       `json:"metadata"`
	Timestamps
}

// FileID returns the hosted file id of a document datasource.
func (d *Datasource) FileID() string {
	return d.Metadata.Get(MetaOpenAI, MetaFileID).Str()
}

// ContentType returns the uploaded document's content type.
func (d *Datasource) ContentType() string {
	return d.Metadata.Get(MetaContentType).Str()
}

// AssistantCategory links an Assistant to a Category.
type AssistantCategory struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistant_id,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	Timestamps
}

// AssistantDatasource links an Assistant to a Datasource.
type AssistantDatasource struct {
	ID           string      `json:"id"`
	AssistantID  string      `json:"assistant_id,omitempty"`
	DatasourceID string      `json:"datasource_id,omitempty"`
	Datasource   *Datasource `json:"datasource,omitempty"`
	Timestamps
}

// CategoryTopic links a Category to a Topic.
type CategoryTopic struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id,omitempty"`
	TopicID    string `json:"topic_id,omitempty"`
	Timestamps
}

// Conversation is an ordered thread of messages tied to one assistant.
type Conversation struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	Metadata    Metadata  `json:"metadata"`
	Messages    []Message `json:"messages,omitempty"`
	Timestamps
}

// ThreadID returns the hosted thread backing the conversation.
func (c *Conversation) ThreadID() string {
	return c.Metadata.Get(MetaOpenAI, MetaThreadID).Str()
}

// Message is a single turn in a conversation.
type Message struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Metadata       Metadata  `json:"metadata"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CategoryID     string    `json:"category_id,omitempty"`
	TopicID        string    `json:"topic_id,omitempty"`
	Timestamps
}

// Categorized reports whether evaluation assigned a category.
func (m *Message) Categorized() bool {
	return m.CategoryID != ""
}

// LabelSet is a candidate category with the topics linked to it.
type LabelSet struct {
	Category Category `json:"category"`
	Topics   []Topic  `json:"topics"`
}

// MessageLabels is the evaluator's write-back onto a message.
type MessageLabels struct {
	CategoryID string
	TopicID    string
	Metadata   Metadata
}

// Evaluation is the result of one evaluator run.
type Evaluation struct {
	MessageID      string            `json:"message_id"`
	Outcome        EvaluationOutcome `json:"outcome"`
	CategoryID     string            `json:"category_id,omitempty"`
	CategoryName   string            `json:"category_name,omitempty"`
	TopicID        string            `json:"topic_id,omitempty"`
	TopicName      string            `json:"topic_name,omitempty"`
	Classification Classification    `json:"classification,omitempty"`
	Sentiment      *float64          `json:"sentiment,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}
