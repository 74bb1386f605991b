// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code, NO external dependencies - just pure business logic.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

const (
	defaultChatModel    = "llama-3.3-70b-versatile"
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 3

	// How much history each model call sees.
	contextualizeWindow = 4
	answerWindow        = 6
)

// placeholderContext stands in for report text when none is available.
// An index built over it satisfies retrieval plumbing without feeding
// the model fake report content: the answer path detects it and drops
// the context block from the prompt.
const placeholderContext = "No report context available."

const reformulateSystemPrompt = "You reformulate questions to be standalone."

const reformulateInstruction = "Given a chat history and the latest user question, " +
	"formulate a standalone question which can be understood without the chat history. " +
	"Do NOT answer the question, just reformulate it if needed and otherwise return it as is."

const answerSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know. " +
	"Use three sentences maximum and keep the answer concise."

// ChatAgentConfig carries the retrieval pipeline tunables.
type ChatAgentConfig struct {
	Model        string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// ChatAgent answers questions over an uploaded report using retrieval:
// chunk, embed, index, retrieve, generate.
// Single Responsibility: Only the question-answering pipeline.
type ChatAgent struct {
	embedder     ports.EmbeddingService
	completer    ports.ChatCompletionService
	indexes      ports.VectorIndexBuilder
	model        string
	chunkSize    int
	chunkOverlap int
	topK         int
}

// NewChatAgent creates a ChatAgent with injected dependencies.
// Dependency Injection: Adapters are passed in, not created here.
func NewChatAgent(
	embedder ports.EmbeddingService,
	completer ports.ChatCompletionService,
	indexes ports.VectorIndexBuilder,
	cfg ChatAgentConfig,
) *ChatAgent {
	if cfg.Model == "" {
		cfg.Model = defaultChatModel
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &ChatAgent{
		embedder:     embedder,
		completer:    completer,
		indexes:      indexes,
		model:        cfg.Model,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		topK:         cfg.TopK,
	}
}

// BuildIndex chunks and embeds report text into a fresh in-memory index.
// Empty or whitespace-only text is replaced by a placeholder so the
// index is never empty. Embedding failures propagate to the caller,
// which owns the fallback policy.
func (a *ChatAgent) BuildIndex(ctx context.Context, text string) (ports.VectorIndex, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		content = placeholderContext
	}

	chunks := a.chunkText(content)
	if len(chunks) == 0 {
		// Never index nothing: fall back to the whole text as one chunk.
		chunks = []entities.Chunk{{
			ID:      generateChunkID(content, 0),
			Content: content,
			Index:   0,
		}}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := a.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding report chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	return a.indexes.Build(chunks), nil
}

// ContextualizeQuery rewrites a follow-up question into a standalone one
// using recent history. With no history the query is already standalone.
// Reformulation is best-effort: any failure returns the original query.
func (a *ChatAgent) ContextualizeQuery(ctx context.Context, query string, history []entities.ChatMessage) string {
	if len(history) == 0 {
		return query
	}

	recent := history
	if len(recent) > contextualizeWindow {
		recent = recent[len(recent)-contextualizeWindow:]
	}
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		speaker := "Assistant"
		if m.Role == entities.RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}

	prompt := fmt.Sprintf("%s\n\nChat History:\n%s\n\nLatest User Question: %s\n\nStandalone Question:",
		reformulateInstruction, strings.Join(lines, "\n"), query)

	out, err := a.completer.Complete(ctx, ports.CompletionRequest{
		Model: a.model,
		Messages: []ports.PromptMessage{
			{Role: entities.RoleSystem, Content: reformulateSystemPrompt},
			{Role: entities.RoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return query
	}
	return strings.TrimSpace(out)
}

// GetResponse answers a query against the indexed report. Failures never
// surface as errors here: retrieval problems degrade to a history-only
// prompt, and generation problems come back as an error message string,
// which is what the conversation shows the user.
func (a *ChatAgent) GetResponse(ctx context.Context, query string, index ports.VectorIndex, history []entities.ChatMessage) string {
	contextText := a.retrieveContext(ctx, query, index, history)

	var userContent string
	if contextText != "" {
		userContent = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, query)
	} else {
		userContent = fmt.Sprintf("Question: %s\n\nNote: No report context is available. Please answer based on the chat history.", query)
	}

	recent := history
	if len(recent) > answerWindow {
		recent = recent[len(recent)-answerWindow:]
	}
	messages := make([]ports.PromptMessage, 0, len(recent)+2)
	messages = append(messages, ports.PromptMessage{Role: entities.RoleSystem, Content: answerSystemPrompt})
	for _, m := range recent {
		messages = append(messages, ports.PromptMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ports.PromptMessage{Role: entities.RoleUser, Content: userContent})

	answer, err := a.completer.Complete(ctx, ports.CompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return fmt.Sprintf("Error generating response: %v", err)
	}
	return answer
}

// retrieveContext runs the retrieval half of the pipeline: contextualize,
// embed, search, join. Any failure yields an empty context - the answer
// path falls back to chat history alone.
func (a *ChatAgent) retrieveContext(ctx context.Context, query string, index ports.VectorIndex, history []entities.ChatMessage) string {
	if index == nil {
		return ""
	}

	searchQuery := a.ContextualizeQuery(ctx, query, history)

	embedding, err := a.embedder.Embed(ctx, searchQuery)
	if err != nil {
		return ""
	}
	results, err := index.Search(ctx, embedding, a.topK)
	if err != nil {
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Content)
	}
	contextText := strings.Join(parts, "\n\n")
	if contextText == placeholderContext {
		// The index only held the placeholder - there is no real report.
		return ""
	}
	return contextText
}

// chunkText splits report text into overlapping chunks.
// Pure business logic - no external dependencies.
func (a *ChatAgent) chunkText(content string) []entities.Chunk {
	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + a.chunkSize
		if end > len(content) {
			end = len(content)
		}

		// Try to break at word boundary
		if end < len(content) {
			lastSpace := strings.LastIndex(content[start:end], " ")
			if lastSpace > 0 {
				end = start + lastSpace
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if len(chunkContent) > 0 {
			chunks = append(chunks, entities.Chunk{
				ID:      generateChunkID(chunkContent, index),
				Content: chunkContent,
				Index:   index,
			})
			index++
		}

		if end >= len(content) {
			break
		}
		next := end - a.chunkOverlap
		if next <= start {
			// Overlap would stall on a long unbroken token; skip it.
			next = end
		}
		start = next
	}

	return chunks
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(seed string, index int) string {
	hash := sha256.Sum256([]byte(seed + string(rune(index))))
	return hex.EncodeToString(hash[:8])
}
