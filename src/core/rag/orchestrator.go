package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"courserag/src/infrastructure/log"
	"courserag/src/ollama"
)

const DefaultMaxTokens = 800

const systemPrompt = `You are an AI assistant specialized in course materials and educational content.

You have two tools:
- search_course_content: for questions about specific course content or lessons.
- get_course_outline: for questions about a course's structure; it returns the
  course title, course link and the complete lesson list.

Answer general knowledge questions directly without tools. Make at most one
call per tool for a question and synthesize the results into a brief, accurate
answer. If a tool yields no results, say so clearly. Do not mention the tools
or the search process in your answer.`

// Generator is the chat-completion surface of the generation service.
// Satisfied by the ollama client.
type Generator interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, tools []api.Tool, options map[string]interface{}) (*ollama.ChatResponse, error)
}

// Orchestrator drives the tool-use round with the generation model: one call
// with tools offered, execution of any requested tools, then one final call
// with the results and no tools. The single round is a hard bound; the model
// can never loop.
type Orchestrator struct {
	llm       Generator
	model     string
	registry  *Registry
	maxTokens int
}

func NewOrchestrator(llm Generator, model string, registry *Registry, maxTokens int) *Orchestrator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Orchestrator{
		llm:       llm,
		model:     model,
		registry:  registry,
		maxTokens: maxTokens,
	}
}

// Answer produces the final response for a query plus the sources of every
// tool result the model consumed, in rank order.
func (o *Orchestrator) Answer(ctx context.Context, query string, history []Exchange) (string, []string, error) {
	messages := []ollama.Message{
		{Role: "system", Content: buildSystemContent(history)},
		{Role: "user", Content: query},
	}

	// Deterministic, bounded output for both rounds.
	options := map[string]interface{}{
		"temperature": 0,
		"num_predict": o.maxTokens,
	}

	first, err := o.llm.Chat(ctx, o.model, messages, o.registry.Definitions(), options)
	if err != nil {
		return "", nil, fmt.Errorf("generation failed: %w", err)
	}

	if len(first.Message.ToolCalls) == 0 {
		return first.Message.Content, nil, nil
	}

	messages = append(messages, ollama.Message{
		Role:      "assistant",
		Content:   first.Message.Content,
		ToolCalls: first.Message.ToolCalls,
	})

	var sources []string
	for _, call := range first.Message.ToolCalls {
		name := call.Function.Name

		tool, ok := o.registry.Get(name)
		if !ok {
			// Local error, not fatal: report it back so the model can
			// still answer.
			log.Info("model requested unregistered tool", "tool", name)
			messages = append(messages, ollama.Message{
				Role:    "tool",
				Content: fmt.Sprintf("Tool '%s' not found", name),
			})
			continue
		}

		result, err := tool.Execute(ctx, call.Function.Arguments)
		if err != nil {
			return "", nil, fmt.Errorf("tool %s failed: %w", name, err)
		}

		sources = append(sources, result.Sources...)
		messages = append(messages, ollama.Message{
			Role:    "tool",
			Content: result.Content,
		})
	}

	// Final round: tools are withheld, so this response is always terminal.
	final, err := o.llm.Chat(ctx, o.model, messages, nil, options)
	if err != nil {
		return "", nil, fmt.Errorf("generation failed after tool round: %w", err)
	}

	return final.Message.Content, sources, nil
}

func buildSystemContent(history []Exchange) string {
	if len(history) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nPrevious conversation:\n")
	for _, ex := range history {
		b.WriteString("User: ")
		b.WriteString(ex.UserText)
		b.WriteString("\nAssistant: ")
		b.WriteString(ex.AssistantText)
		b.WriteString("\n")
	}
	return b.String()
}
