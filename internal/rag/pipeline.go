// Package rag is the query-time orchestrator: it routes a question to a
// language, condenses follow-ups into standalone queries, retrieves
// grounding passages from the vector index, and drives the LLM to answer
// strictly from them.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/luisromp/personarag/internal/embeddings"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/language"
	"github.com/luisromp/personarag/internal/llm"
	"github.com/luisromp/personarag/internal/session"
)

// Retriever is the slice of the index the pipeline needs.
type Retriever interface {
	Query(ctx context.Context, lang string, vector []float32, k int, threshold float32) ([]index.Result, error)
}

// Options are the retrieval and generation knobs.
type Options struct {
	TopK               int
	ScoreThreshold     float32
	ContextBudgetChars int
	Model              string
	Temperature        float64
	MaxAnswerTokens    int
}

// Answer is the pipeline's response to one question.
type Answer struct {
	Text string
	// Sources lists the distinct source URIs of the chunks that grounded
	// the answer, in inclusion order.
	Sources []string
	// Grounded is false when no chunk met the score threshold and the
	// model was instructed to decline.
	Grounded bool
}

// Pipeline answers questions against the knowledge base.
//
// Within one session, turns land in request-completion order; callers
// needing strict conversational order must not overlap requests for the
// same session ID.
type Pipeline struct {
	retriever Retriever
	embedder  embeddings.Embedder
	provider  llm.Provider
	sessions  *session.Store
	resolver  *language.Resolver
	opts      Options
	now       func() time.Time
}

// New creates a Pipeline. The embedder and provider are expected to carry
// their own retry policy (see embeddings.RetryEmbedder, llm.RetryProvider).
func New(retriever Retriever, embedder embeddings.Embedder, provider llm.Provider, sessions *session.Store, resolver *language.Resolver, opts Options) *Pipeline {
	if opts.MaxAnswerTokens == 0 {
		opts.MaxAnswerTokens = 1024
	}
	return &Pipeline{
		retriever: retriever,
		embedder:  embedder,
		provider:  provider,
		sessions:  sessions,
		resolver:  resolver,
		opts:      opts,
		now:       time.Now,
	}
}

// Answer runs the full pipeline for one question. lang may be empty, in
// which case it is detected from the question text. Retrieval, prompting,
// and generation all stay within the routed language's collection; there
// is no cross-language fallback.
func (p *Pipeline) Answer(ctx context.Context, sessionID, question, lang string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	if lang == "" || !p.resolver.Supported(lang) {
		lang = p.resolver.Detect(question)
	}

	history, err := p.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	query := p.condense(ctx, lang, history, question)

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors, want 1", len(vectors))
	}

	results, err := p.retriever.Query(ctx, lang, vectors[0], p.opts.TopK, p.opts.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	contextText, sources := assembleContext(results, p.opts.ContextBudgetChars)
	grounded := len(sources) > 0

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: answerSystemPrompt(lang, p.now(), contextText, grounded),
	})
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxAnswerTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	answerText := strings.TrimSpace(resp.Content)

	if err := p.sessions.Append(ctx, sessionID, session.Turn{Role: session.RoleUser, Content: question}); err != nil {
		return nil, fmt.Errorf("recording question: %w", err)
	}
	if err := p.sessions.Append(ctx, sessionID, session.Turn{Role: session.RoleAssistant, Content: answerText}); err != nil {
		return nil, fmt.Errorf("recording answer: %w", err)
	}

	return &Answer{Text: answerText, Sources: sources, Grounded: grounded}, nil
}

// condense rewrites a follow-up question into a standalone query using
// the conversation history. With no history the raw question already
// stands alone. A condensation failure degrades retrieval quality but
// never fails the request: the raw question is used instead.
func (p *Pipeline) condense(ctx context.Context, lang string, history []session.Turn, question string) string {
	if len(history) == 0 {
		return question
	}

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: condensePrompt(lang, history, question)}},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		log.Printf("rag: condensing question failed, using raw question: %v", err)
		return question
	}

	condensed := strings.TrimSpace(resp.Content)
	if condensed == "" {
		return question
	}
	return condensed
}

// assembleContext concatenates retrieved chunk texts in descending-score
// order until adding the next whole chunk would exceed the character
// budget. Chunk text is never truncated mid-passage; the list is cut
// instead. Returns the context block and the distinct source URIs of the
// included chunks.
func assembleContext(results []index.Result, budget int) (string, []string) {
	var sb strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for _, r := range results {
		if sb.Len() > 0 && sb.Len()+len(r.Text)+2 > budget {
			break
		}
		if sb.Len() == 0 && len(r.Text) > budget {
			// Even a single oversized chunk is included alone rather than
			// producing an empty context from a successful retrieval.
			sb.WriteString(r.Text)
		} else {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(r.Text)
		}
		if !seen[r.SourceURI] {
			seen[r.SourceURI] = true
			sources = append(sources, r.SourceURI)
		}
	}

	return sb.String(), sources
}
