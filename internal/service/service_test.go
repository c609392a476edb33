package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/adapter/llm"
	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/policy"
	"github.com/euskoog/openai-assistants-link/tests/helpers"
)

type fixture struct {
	svc   *Service
	agent *agentclient.MockClient
	llm   *llm.MockClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AppMode = config.ModeMock

	agent := agentclient.NewMockClient()
	llmClient := llm.NewMockClient()
	return &fixture{
		svc:   New(helpers.NewTestStore(t), agent, llmClient, cfg, engine, zap.NewNop()),
		agent: agent,
		llm:   llmClient,
	}
}

func (f *fixture) assistant(t *testing.T) *domain.Assistant {
	t.Helper()
	a, err := f.svc.CreateAssistant(context.Background(), domain.AssistantInput{Name: "Support", Instructions: "Help customers."})
	require.NoError(t, err)
	return a
}

func (f *fixture) seedBilling(t *testing.T) {
	t.Helper()
	_, err := f.svc.SeedCategories(context.Background(), []domain.CategorySeed{
		{Name: "Billing", Topics: []string{"Refunds", "Invoices"}},
		{Name: "Other"},
	})
	require.NoError(t, err)
}

func chat(content string) domain.ChatRequest {
	return domain.ChatRequest{Message: domain.ChatMessage{Content: content}}
}

func TestCreateAssistantStoresUpstreamID(t *testing.T) {
	f := newFixture(t)
	a := f.assistant(t)

	upstreamID := a.UpstreamID()
	require.NotEmpty(t, upstreamID)
	assert.Equal(t, "Support", f.agent.Assistants[upstreamID].Name)
	assert.Equal(t, config.Default().DefaultModel, a.Model)

	got, err := f.svc.GetAssistant(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, upstreamID, got.UpstreamID())
}

func TestCreateAssistantValidationAndUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateAssistant(ctx, domain.AssistantInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.agent.FailOn("CreateAssistant", &domain.UpstreamError{Op: "create assistant", Status: 429, Err: errors.New("rate limited")})
	_, err = f.svc.CreateAssistant(ctx, domain.AssistantInput{Name: "Support"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	assistants, err := f.svc.ListAssistants(ctx)
	require.NoError(t, err)
	assert.Empty(t, assistants)
}

func TestUpdateAssistantKeepsUpstreamIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	updated, err := f.svc.UpdateAssistant(ctx, a.ID, domain.AssistantInput{
		Name:     "Billing Support",
		Metadata: domain.Metadata{"team": domain.String("billing"), domain.MetaOpenAI: domain.String("overwrite")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Billing Support", updated.Name)
	assert.Equal(t, "Help customers.", updated.Instructions)
	assert.Equal(t, a.UpstreamID(), updated.UpstreamID())
	assert.Equal(t, "billing", updated.Metadata.Get("team").Str())
	assert.Equal(t, "Billing Support", f.agent.Assistants[a.UpstreamID()].Name)

	_, err = f.svc.UpdateAssistant(ctx, "missing", domain.AssistantInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteAssistant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	require.NoError(t, f.svc.DeleteAssistant(ctx, a.ID))
	assert.NotContains(t, f.agent.Assistants, a.UpstreamID())

	got, err := f.svc.GetAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active())

	// Already deleted: no upstream call.
	f.agent.FailOn("DeleteAssistant", errors.New("should not be called"))
	assert.NoError(t, f.svc.DeleteAssistant(ctx, a.ID))

	assert.ErrorIs(t, f.svc.DeleteAssistant(ctx, "missing"), domain.ErrNotFound)
}

func TestChatCreatesConversationAndEvaluates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	f.seedBilling(t)

	f.llm.Enqueue(`{"category": "billing", "topic": "refunds", "classification": "Answered", "sentiment": 0.4}`)
	resp, err := f.svc.Chat(ctx, a.ID, chat("Where is my refund?"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.ConversationID)

	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Contains(t, resp.Message.Content, "Where is my refund?")
	assert.NotEmpty(t, resp.Message.Metadata.Get(domain.MetaOpenAI, domain.MetaRunID).Str())
	require.NotNil(t, resp.Evaluation)
	assert.Equal(t, domain.EvaluationCategorized, resp.Evaluation.Outcome)
	assert.Equal(t, "Billing", resp.Evaluation.CategoryName)
	assert.Equal(t, "Refunds", resp.Evaluation.TopicName)
	assert.True(t, resp.Message.Categorized())

	detail, err := f.svc.GetConversation(ctx, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, domain.RoleUser, detail.Messages[0].Role)
	reply := detail.Messages[1]
	assert.Equal(t, resp.Evaluation.CategoryID, reply.CategoryID)
	assert.Equal(t, resp.Evaluation.TopicID, reply.TopicID)
	assert.Equal(t, "Answered", reply.Metadata.Get(domain.MetaClassification).Str())
	assert.Equal(t, detail.Messages[0].ID, reply.Metadata.Get(domain.MetaQueryMessageID).Str())
	assert.Equal(t, a.ID, detail.Assistant.ID)

	threadID := detail.ThreadID()
	require.NotEmpty(t, threadID)

	// A follow-up reuses the thread and sends the first exchange as history.
	resp2, err := f.svc.Chat(ctx, a.ID, domain.ChatRequest{
		ConversationID: resp.ConversationID,
		Message:        domain.ChatMessage{Content: "And my invoice?"},
	})
	require.NoError(t, err)
	assert.Equal(t, resp.ConversationID, resp2.ConversationID)
	assert.Equal(t, threadID, f.agent.Turns[1].ThreadID)

	messages, err := f.svc.ListMessages(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)

	requests := f.llm.Requests()
	require.Len(t, requests, 2)
	assert.True(t, requests[1].JSON)
	prompt := requests[1].Messages[0].Content
	assert.Contains(t, prompt, "Where is my refund?")
	assert.Contains(t, prompt, "And my invoice?")
	assert.Contains(t, prompt, "Category: Billing")
	assert.Contains(t, prompt, "Topic: Invoices")
}

func TestChatUpstreamFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	f.agent.FailOn("RunTurn", &domain.UpstreamError{Op: "run", Err: errors.New("network down")})
	_, err := f.svc.Chat(ctx, a.ID, chat("hello"))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	conversations, err := f.svc.ListConversations(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, conversations)
	assert.Empty(t, f.agent.Threads, "orphan thread should be deleted")
}

func TestChatValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	_, err := f.svc.Chat(ctx, a.ID, chat("   "))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Chat(ctx, "missing", chat("hello"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Chat(ctx, a.ID, domain.ChatRequest{ConversationID: "missing", Message: domain.ChatMessage{Content: "hello"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A conversation belongs to one assistant.
	other, err := f.svc.CreateAssistant(ctx, domain.AssistantInput{Name: "Other"})
	require.NoError(t, err)
	resp, err := f.svc.Chat(ctx, other.ID, chat("hello"))
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, a.ID, domain.ChatRequest{ConversationID: resp.ConversationID, Message: domain.ChatMessage{Content: "hi"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatEvaluationIsBestEffort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	f.seedBilling(t)

	f.llm.Fail(errors.New("model unavailable"))
	resp, err := f.svc.Chat(ctx, a.ID, chat("hello"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationFailed, resp.Evaluation.Outcome)
	assert.False(t, resp.Message.Categorized())

	f.llm.Enqueue(`{"category": "Billing", "topic": "Shipping", "classification": "Answered"}`)
	resp, err = f.svc.Chat(ctx, a.ID, chat("where is my parcel"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationInvalidLabel, resp.Evaluation.Outcome)

	stored, err := f.svc.GetMessage(ctx, resp.Message.ID)
	require.NoError(t, err)
	assert.False(t, stored.Categorized())
	assert.True(t, stored.Metadata.Get(domain.MetaClassification).IsNull())
}

func TestNotAllowedFallsBackToOther(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	f.seedBilling(t)

	f.llm.Enqueue(`{"category": "", "topic": "", "classification": "Not Allowed", "sentiment": -0.5}`)
	resp, err := f.svc.Chat(ctx, a.ID, chat("tell me a secret"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationCategorized, resp.Evaluation.Outcome)
	assert.Equal(t, "Other", resp.Evaluation.CategoryName)
	assert.Empty(t, resp.Evaluation.TopicID)

	f.llm.Enqueue(`{"category": "Shipping", "classification": "Not Answered"}`)
	resp, err = f.svc.Chat(ctx, a.ID, domain.ChatRequest{ConversationID: resp.ConversationID, Message: domain.ChatMessage{Content: "where is my parcel"}})
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationInvalidLabel, resp.Evaluation.Outcome)
	assert.Empty(t, resp.Evaluation.CategoryID)
}

func TestChatSkipsEvaluationWithoutCategories(t *testing.T) {
	f := newFixture(t)
	a := f.assistant(t)

	resp, err := f.svc.Chat(context.Background(), a.ID, chat("hello"))
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationSkipped, resp.Evaluation.Outcome)
	assert.Empty(t, f.llm.Requests())
}

func TestChatPassesPolicyTools(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	d, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "faq.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	_, err = f.svc.CreateAssistantDatasource(ctx, a.ID, d.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateAssistantDatasource(ctx, a.ID, d.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	links, err := f.svc.ListAssistantDatasources(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	_, err = f.svc.Chat(ctx, a.ID, chat("hello"))
	require.NoError(t, err)
	require.Len(t, f.agent.Turns, 1)
	assert.Equal(t, []string{agentclient.ToolFileSearch}, f.agent.Turns[0].Tools)
	assert.Equal(t, a.UpstreamID(), f.agent.Turns[0].AssistantID)
}

func TestEvaluateMessageOnDemand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	resp, err := f.svc.Chat(ctx, a.ID, chat("I was charged twice"))
	require.NoError(t, err)
	require.Equal(t, domain.EvaluationSkipped, resp.Evaluation.Outcome)

	f.seedBilling(t)
	f.llm.Enqueue(`Sure: {"category": "Billing", "topic": "", "classification": "not answered", "sentiment": -3}`)
	eval, err := f.svc.EvaluateMessage(ctx, resp.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationCategorized, eval.Outcome)
	assert.Equal(t, domain.ClassificationNotAnswered, eval.Classification)
	require.NotNil(t, eval.Sentiment)
	assert.Equal(t, -1.0, *eval.Sentiment)
	assert.Empty(t, eval.TopicID)

	stored, err := f.svc.GetMessage(ctx, resp.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, eval.CategoryID, stored.CategoryID)
	assert.Contains(t, f.llm.Requests()[0].Messages[0].Content, "I was charged twice")

	detail, err := f.svc.GetConversation(ctx, resp.ConversationID)
	require.NoError(t, err)
	_, err = f.svc.EvaluateMessage(ctx, detail.Messages[0].ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.EvaluateMessage(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssistantCategoriesNarrowCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	f.seedBilling(t)

	defaults, err := f.svc.ListCategoriesForAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, defaults, 2)

	custom, err := f.svc.CreateCategory(ctx, domain.CategoryInput{Name: "Returns"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryTypeCustom, custom.Type)
	link, err := f.svc.CreateAssistantCategory(ctx, a.ID, custom.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateAssistantCategory(ctx, a.ID, custom.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	linked, err := f.svc.ListCategoriesForAssistant(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Returns", linked[0].Name)

	require.NoError(t, f.svc.DeleteAssistantCategory(ctx, link.ID))
	defaults, err = f.svc.ListCategoriesForAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, defaults, 2)
}

func TestCategoryTopicLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.svc.CreateCategory(ctx, domain.CategoryInput{Name: "Billing", Type: domain.CategoryTypeDefault})
	require.NoError(t, err)
	topic, err := f.svc.CreateTopic(ctx, "Refunds")
	require.NoError(t, err)

	_, err = f.svc.CreateTopic(ctx, "Refunds")
	assert.ErrorIs(t, err, domain.ErrConflict)

	link, err := f.svc.CreateCategoryTopic(ctx, c.ID, topic.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateCategoryTopic(ctx, c.ID, topic.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.svc.CreateCategoryTopic(ctx, c.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)

	topics, err := f.svc.ListTopicsForCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Refunds", topics[0].Name)

	require.NoError(t, f.svc.DeleteCategoryTopic(ctx, link.ID))
	topics, err = f.svc.ListTopicsForCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, topics)

	_, err = f.svc.CreateCategory(ctx, domain.CategoryInput{Name: "Bad", Type: "SPECIAL"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDocumentLinking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	upstreamID := a.UpstreamID()

	pdf, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "guide.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")})
	require.NoError(t, err)
	assert.Equal(t, domain.DatasourceTypeDocument, pdf.Type)
	assert.Equal(t, "guide.pdf", pdf.Name)
	assert.Equal(t, "guide.pdf", pdf.Metadata.Get(domain.MetaFilename).Str())
	require.Contains(t, f.agent.Files, pdf.FileID())

	csv, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Name: "Prices", Filename: "prices.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")})
	require.NoError(t, err)

	pdfLink, err := f.svc.CreateAssistantDatasource(ctx, a.ID, pdf.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateAssistantDatasource(ctx, a.ID, csv.ID)
	require.NoError(t, err)

	stored, err := f.svc.GetAssistant(ctx, a.ID)
	require.NoError(t, err)
	vs := vectorStoreID(stored)
	require.NotEmpty(t, vs)
	assert.Equal(t, []string{pdf.FileID()}, f.agent.VectorStores[vs])

	res := f.agent.Resources[upstreamID]
	assert.Equal(t, []string{agentclient.ToolCodeInterpreter, agentclient.ToolFileSearch}, res.Tools)
	assert.Equal(t, []string{vs}, res.VectorStoreIDs)
	assert.Equal(t, []string{csv.FileID()}, res.CodeFileIDs)

	links, err := f.svc.ListAssistantDatasources(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	require.NoError(t, f.svc.DeleteAssistantDatasource(ctx, pdfLink.ID))
	assert.Empty(t, f.agent.VectorStores[vs])
	assert.Equal(t, []string{agentclient.ToolCodeInterpreter}, f.agent.Resources[upstreamID].Tools)

	// Unlinking twice is a no-op.
	require.NoError(t, f.svc.DeleteAssistantDatasource(ctx, pdfLink.ID))
}

func TestLinkRollsBackOnUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	d, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "guide.pdf", ContentType: "application/pdf", Data: []byte("x")})
	require.NoError(t, err)

	f.agent.FailOn("SetResources", &domain.UpstreamError{Op: "update assistant", Err: errors.New("boom")})
	_, err = f.svc.CreateAssistantDatasource(ctx, a.ID, d.ID)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	links, err := f.svc.ListAssistantDatasources(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestUpdateDocumentReplacesFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)

	d, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "v1.pdf", ContentType: "application/pdf", Data: []byte("one")})
	require.NoError(t, err)
	oldFile := d.FileID()
	_, err = f.svc.CreateAssistantDatasource(ctx, a.ID, d.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateDocument(ctx, d.ID, domain.DocumentUpload{Filename: "v2.pdf", ContentType: "application/pdf", Data: []byte("two!")})
	require.NoError(t, err)
	newFile := updated.FileID()
	assert.NotEqual(t, oldFile, newFile)
	assert.Equal(t, "v1.pdf", updated.Name)
	assert.NotContains(t, f.agent.Files, oldFile)

	stored, err := f.svc.GetAssistant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{newFile}, f.agent.VectorStores[vectorStoreID(stored)])
}

func TestDatasourceLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "empty.txt"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.CreateDatasource(ctx, domain.DatasourceInput{Name: "Doc", Type: domain.DatasourceTypeDocument})
	assert.ErrorIs(t, err, domain.ErrValidation)

	ep, err := f.svc.CreateDatasource(ctx, domain.DatasourceInput{
		Name:     "Orders API",
		Type:     domain.DatasourceTypeEndpoint,
		Metadata: domain.Metadata{"url": domain.String("https://example.com/orders")},
	})
	require.NoError(t, err)

	ep, err = f.svc.UpdateDatasource(ctx, ep.ID, domain.DatasourceInput{Description: "order lookups"})
	require.NoError(t, err)
	assert.Equal(t, "Orders API", ep.Name)
	assert.Equal(t, "https://example.com/orders", ep.Metadata.Get("url").Str())

	doc, err := f.svc.CreateDocument(ctx, domain.DocumentUpload{Filename: "a.txt", ContentType: "text/plain", Data: []byte("a")})
	require.NoError(t, err)
	_, err = f.svc.UpdateDatasource(ctx, doc.ID, domain.DatasourceInput{Metadata: domain.Metadata{}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.svc.DeleteDatasource(ctx, doc.ID))
	assert.NotContains(t, f.agent.Files, doc.FileID())
	require.NoError(t, f.svc.DeleteDatasource(ctx, doc.ID))

	all, err := f.svc.ListDatasources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ep.ID, all[0].ID)
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeds := []domain.CategorySeed{
		{Name: "Billing", Topics: []string{"Refunds", "Payments"}},
		{Name: "Account", Topics: []string{"Payments"}},
	}

	res, err := f.svc.SeedCategories(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeedResult{Categories: 2, Topics: 2, Links: 3}, res)

	res, err = f.svc.SeedCategories(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeedResult{}, res)

	defaults, err := f.svc.ListDefaultCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, defaults, 2)
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assistant(t)
	f.seedBilling(t)

	f.llm.Enqueue(`{"category": "Billing", "topic": "Refunds", "classification": "Answered", "sentiment": 0.5}`)
	f.llm.Enqueue(`{"category": "Billing", "topic": "Refunds", "classification": "Not Allowed", "sentiment": -0.5}`)
	first, err := f.svc.Chat(ctx, a.ID, chat("refund please"))
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, a.ID, chat("refund my neighbour"))
	require.NoError(t, err)

	counts, err := f.svc.TopicCounts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].TopicCount)
	assert.Equal(t, int64(1), counts[0].NumAnswered)
	assert.Equal(t, int64(1), counts[0].NumNotAllowed)

	msgs, err := f.svc.TopicMessages(ctx, domain.TopicMessageQuery{
		TopicID:     first.Evaluation.TopicID,
		CategoryID:  first.Evaluation.CategoryID,
		AnswerTypes: []domain.Classification{domain.ClassificationAnswered},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, first.Message.ID, msgs[0].ID)

	_, err = f.svc.TopicMessages(ctx, domain.TopicMessageQuery{TopicID: "t"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.TopicMessages(ctx, domain.TopicMessageQuery{TopicID: "t", CategoryID: "c", AnswerTypes: []domain.Classification{"Maybe"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	rows, err := f.svc.CategoriesForAssistants(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		category       string
		topic          string
		classification domain.Classification
		sentiment      *float64
		wantErr        bool
	}{
		{
			name:           "plain object",
			content:        `{"category": " Billing ", "topic": "Refunds", "classification": "Answered", "sentiment": 0.25}`,
			category:       "Billing",
			topic:          "Refunds",
			classification: domain.ClassificationAnswered,
			sentiment:      ptr(0.25),
		},
		{
			name:     "fenced",
			content:  "```json\n{\"category\": \"Other\"}\n```",
			category: "Other",
		},
		{
			name:           "unknown classification and clamped sentiment",
			content:        `{"category": "Other", "classification": "Perhaps", "sentiment": 7}`,
			category:       "Other",
			classification: "",
			sentiment:      ptr(1.0),
		},
		{name: "malformed", content: `category: Billing`, wantErr: true},
		{name: "not an object", content: `["Billing"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.category, v.category)
			assert.Equal(t, tt.topic, v.topic)
			assert.Equal(t, tt.classification, v.classification)
			assert.Equal(t, tt.sentiment, v.sentiment)
		})
	}
}

func TestMatchLabel(t *testing.T) {
	sets := []domain.LabelSet{
		{Category: domain.Category{ID: "c1", Name: "Billing"}, Topics: []domain.Topic{{ID: "t1", Name: "Refunds"}}},
		{Category: domain.Category{ID: "c2", Name: "Other"}},
	}

	set, topic, reason := matchLabel(sets, "BILLING", "refunds")
	require.Empty(t, reason)
	assert.Equal(t, "c1", set.Category.ID)
	assert.Equal(t, "t1", topic.ID)

	set, topic, reason = matchLabel(sets, "Other", "")
	require.Empty(t, reason)
	assert.Equal(t, "c2", set.Category.ID)
	assert.Nil(t, topic)

	_, _, reason = matchLabel(sets, "Other", "Refunds")
	assert.True(t, strings.Contains(reason, "does not belong"))
	_, _, reason = matchLabel(sets, "Shipping", "")
	assert.NotEmpty(t, reason)
	_, _, reason = matchLabel(sets, "", "")
	assert.NotEmpty(t, reason)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	// "é" is two bytes; cutting inside it backs off to the previous rune.
	got := truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt(promptData{
		Instructions: "Be brief.",
		History:      []domain.Message{{Role: domain.RoleUser, Content: "earlier question"}},
		Labels: []domain.LabelSet{{
			Category: domain.Category{Name: "Billing", Description: "money"},
			Topics:   []domain.Topic{{Name: "Refunds"}},
		}},
		Query: "new question",
		Reply: "an answer",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Be brief.")
	assert.Contains(t, prompt, "Role: USER\nMessage: earlier question")
	assert.Contains(t, prompt, "- Category: Billing (money)")
	assert.Contains(t, prompt, "  - Topic: Refunds")
	assert.Contains(t, prompt, "new question")
	assert.Contains(t, prompt, "an answer")
	assert.NotContains(t, prompt, "(no earlier messages)")
}

func ptr(f float64) *float64 { return &f }
