package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/llm"
	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/metrics"
)

// EvaluateMessage re-runs the evaluator on an assistant reply. The query is
// the closest earlier user message of the same conversation.
func (s *Service) EvaluateMessage(ctx context.Context, messageID string) (*domain.Evaluation, error) {
	reply, err := found(s.store.GetMessage(ctx, messageID))("message", messageID)
	if err != nil {
		return nil, err
	}
	if reply.Role != domain.RoleAssistant {
		return nil, &domain.ValidationError{Field: "message", Reason: "only assistant replies can be evaluated"}
	}
	conv, err := found(s.store.GetConversation(ctx, reply.ConversationID))("conversation", reply.ConversationID)
	if err != nil {
		return nil, err
	}
	a, err := found(s.store.GetAssistant(ctx, conv.AssistantID))("assistant", conv.AssistantID)
	if err != nil {
		return nil, err
	}

	earlier, err := s.store.RecentMessages(ctx, conv.ID, reply.Timestamp, s.config.EvaluatorHistory+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	var query *domain.Message
	for i := len(earlier) - 1; i >= 0; i-- {
		if earlier[i].Role == domain.RoleUser {
			query = &earlier[i]
			break
		}
	}
	if query == nil {
		return nil, &domain.ValidationError{Field: "message", Reason: "no user query precedes the reply"}
	}

	return s.evaluate(ctx, a, query, reply), nil
}

// evaluate classifies reply into one of the assistant's candidate labels and
// writes the label onto the reply. It never returns an error: every failure
// leaves the message uncategorized and is reported in the outcome.
func (s *Service) evaluate(ctx context.Context, a *domain.Assistant, query, reply *domain.Message) *domain.Evaluation {
	eval := &domain.Evaluation{MessageID: reply.ID}
	log := s.logger.With(zap.String("message_id", reply.ID), zap.String("assistant_id", a.ID))

	finish := func(outcome domain.EvaluationOutcome, reason string) *domain.Evaluation {
		eval.Outcome = outcome
		eval.Reason = reason
		metrics.Evaluation(string(outcome))
		switch outcome {
		case domain.EvaluationCategorized:
			log.Info("message categorized",
				zap.String("category", eval.CategoryName), zap.String("topic", eval.TopicName),
				zap.String("classification", string(eval.Classification)))
		case domain.EvaluationSkipped:
			log.Debug("evaluation skipped", zap.String("reason", reason))
		default:
			log.Warn("evaluation failed", zap.String("outcome", string(outcome)), zap.String("reason", reason))
		}
		return eval
	}

	labels, err := s.candidateLabels(ctx, a.ID)
	if err != nil {
		return finish(domain.EvaluationFailed, err.Error())
	}
	if len(labels) == 0 {
		return finish(domain.EvaluationSkipped, "no categories available")
	}

	history, err := s.store.RecentMessages(ctx, reply.ConversationID, query.Timestamp, s.config.EvaluatorHistory)
	if err != nil {
		return finish(domain.EvaluationFailed, fmt.Sprintf("failed to load history: %v", err))
	}
	prompt, err := renderPrompt(promptData{
		Instructions: a.Instructions,
		History:      history,
		Labels:       labels,
		Query:        query.Content,
		Reply:        reply.Content,
	})
	if err != nil {
		return finish(domain.EvaluationFailed, fmt.Sprintf("failed to render prompt: %v", err))
	}

	completion, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:    s.config.EvaluatorModel,
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return finish(domain.EvaluationFailed, err.Error())
	}

	verdict, err := parseVerdict(completion.Content)
	if err != nil {
		return finish(domain.EvaluationFailed, err.Error())
	}
	eval.Classification = verdict.classification
	eval.Sentiment = verdict.sentiment

	set, topic, reason := matchLabel(labels, verdict.category, verdict.topic)
	if reason != "" && verdict.classification == domain.ClassificationNotAllowed {
		// Refused queries go to Other when the model picks nothing usable.
		if fs, _, freason := matchLabel(labels, fallbackCategory, ""); freason == "" {
			set, topic, reason = fs, nil, ""
		}
	}
	if reason != "" {
		return finish(domain.EvaluationInvalidLabel, reason)
	}
	eval.CategoryID, eval.CategoryName = set.Category.ID, set.Category.Name
	if topic != nil {
		eval.TopicID, eval.TopicName = topic.ID, topic.Name
	}

	patch := domain.Metadata{domain.MetaQueryMessageID: domain.String(query.ID)}
	if eval.Classification != "" {
		patch[domain.MetaClassification] = domain.String(string(eval.Classification))
	}
	if eval.Sentiment != nil {
		patch[domain.MetaSentiment] = domain.Number(*eval.Sentiment)
	}
	err = s.store.AssignMessageLabels(ctx, reply.ID, domain.MessageLabels{
		CategoryID: eval.CategoryID,
		TopicID:    eval.TopicID,
		Metadata:   patch,
	})
	if err != nil {
		eval.CategoryID, eval.CategoryName, eval.TopicID, eval.TopicName = "", "", "", ""
		if errors.Is(err, domain.ErrInvalidLabel) {
			return finish(domain.EvaluationInvalidLabel, err.Error())
		}
		return finish(domain.EvaluationFailed, fmt.Sprintf("failed to store labels: %v", err))
	}

	reply.CategoryID, reply.TopicID = eval.CategoryID, eval.TopicID
	reply.Metadata = reply.Metadata.Merge(patch)
	return finish(domain.EvaluationCategorized, "")
}

// candidateLabels returns the assistant's linked categories, or every
// DEFAULT category when it has none, each with its active topics.
func (s *Service) candidateLabels(ctx context.Context, assistantID string) ([]domain.LabelSet, error) {
	categories, err := s.store.ListCategoriesForAssistant(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant categories: %w", err)
	}
	if len(categories) == 0 {
		categories, err = s.store.ListCategories(ctx, domain.CategoryTypeDefault)
		if err != nil {
			return nil, fmt.Errorf("failed to list default categories: %w", err)
		}
	}

	sets := make([]domain.LabelSet, 0, len(categories))
	for _, c := range categories {
		topics, err := s.store.ListTopicsForCategory(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list topics of %q: %w", c.Name, err)
		}
		sets = append(sets, domain.LabelSet{Category: c, Topics: topics})
	}
	return sets, nil
}

// fallbackCategory receives Not Allowed queries without a usable label.
const fallbackCategory = "Other"

type verdict struct {
	category       string
	topic          string
	classification domain.Classification
	sentiment      *float64
}

// parseVerdict reads the model's JSON answer. Text around the object is
// ignored.
func parseVerdict(content string) (*verdict, error) {
	raw := strings.TrimSpace(content)
	if !gjson.Valid(raw) {
		start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
		if start < 0 || end <= start || !gjson.Valid(raw[start:end+1]) {
			return nil, fmt.Errorf("evaluator returned malformed JSON: %q", truncate(raw, 200))
		}
		raw = raw[start : end+1]
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return nil, fmt.Errorf("evaluator returned %s, want an object", res.Type)
	}

	v := &verdict{
		category: strings.TrimSpace(res.Get("category").String()),
		topic:    strings.TrimSpace(res.Get("topic").String()),
	}
	if c, ok := domain.ParseClassification(res.Get("classification").String()); ok {
		v.classification = c
	}
	if sentiment := res.Get("sentiment"); sentiment.Type == gjson.Number {
		f := sentiment.Float()
		f = min(max(f, -1), 1)
		v.sentiment = &f
	}
	return v, nil
}

// matchLabel finds the chosen category and topic among the candidates by
// case-insensitive name. A non-empty reason means the label was rejected.
func matchLabel(sets []domain.LabelSet, category, topic string) (*domain.LabelSet, *domain.Topic, string) {
	if category == "" {
		return nil, nil, "no category chosen"
	}
	var set *domain.LabelSet
	for i := range sets {
		if strings.EqualFold(sets[i].Category.Name, category) {
			set = &sets[i]
			break
		}
	}
	if set == nil {
		return nil, nil, fmt.Sprintf("category %q is not a candidate", category)
	}
	if topic == "" {
		return set, nil, ""
	}
	for i := range set.Topics {
		if strings.EqualFold(set.Topics[i].Name, topic) {
			return set, &set.Topics[i], ""
		}
	}
	return nil, nil, fmt.Sprintf("topic %q does not belong to category %q", topic, set.Category.Name)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
