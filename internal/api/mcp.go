package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sellerdesk/internal/dispatch"
	"sellerdesk/internal/filter"
	"sellerdesk/internal/knowledge"
	"sellerdesk/internal/panel"
)

// NewMCPServer creates an MCP server exposing the operator tools, so an
// agent can work the question queue through the same dispatch path as the
// HTTP API.
func NewMCPServer(deps Deps) *server.MCPServer {
	byName := make(map[string]panel.Store, len(deps.Stores))
	for _, st := range deps.Stores {
		byName[st.Config.Name] = st
	}

	s := server.NewMCPServer(
		"sellerdesk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("sellerdesk — marketplace store automation: list waiting customer questions, answer them, and inspect templates and the answer log."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_questions",
			mcp.WithDescription("List customer questions waiting for an answer in one store."),
			mcp.WithString("store", mcp.Description("Configured store name"), mcp.Required()),
		),
		mcpListQuestions(deps, byName),
	)

	s.AddTool(
		mcp.NewTool("list_templates",
			mcp.WithDescription("List the stored answer templates."),
		),
		mcpListTemplates(deps),
	)

	s.AddTool(
		mcp.NewTool("send_answer",
			mcp.WithDescription("Send answer text for a waiting question. Text pointing customers off-platform is rejected; a question is answered at most once."),
			mcp.WithString("store", mcp.Description("Configured store name"), mcp.Required()),
			mcp.WithNumber("question_id", mcp.Description("Question id within the store"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Answer text"), mcp.Required()),
		),
		mcpSendAnswer(deps, byName),
	)

	s.AddTool(
		mcp.NewTool("answer_log",
			mcp.WithDescription("Show recently dispatched answers across all stores."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpAnswerLog(deps),
	)

	return s
}

func mcpListQuestions(deps Deps, byName map[string]panel.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store, err := req.RequireString("store")
		if err != nil {
			return mcpError("store is required"), nil
		}
		st, ok := byName[store]
		if !ok {
			return mcpError(fmt.Sprintf("unknown store %q", store)), nil
		}

		questions, err := st.Client.WaitingQuestions(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching questions: %v", err)), nil
		}

		type questionInfo struct {
			ID      int64  `json:"id"`
			Product string `json:"product"`
			Text    string `json:"text"`
			Handled bool   `json:"handled"`
		}
		out := make([]questionInfo, len(questions))
		for i, q := range questions {
			out[i] = questionInfo{
				ID:      q.ID,
				Product: q.ProductName,
				Text:    q.Text,
				Handled: deps.Tracker.HandledQuestion(store, q.ID),
			}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal questions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTemplates(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		templates, err := deps.Knowledge.ListTemplates()
		if err != nil {
			return mcpError(fmt.Sprintf("listing templates: %v", err)), nil
		}
		if templates == nil {
			templates = []knowledge.Template{}
		}

		b, err := json.Marshal(templates)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal templates: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSendAnswer(deps Deps, byName map[string]panel.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store, err := req.RequireString("store")
		if err != nil {
			return mcpError("store is required"), nil
		}
		st, ok := byName[store]
		if !ok {
			return mcpError(fmt.Sprintf("unknown store %q", store)), nil
		}

		questionID, err := req.RequireInt("question_id")
		if err != nil {
			return mcpError("question_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		if ok, why := filter.Check(text); !ok {
			return mcpError(fmt.Sprintf("answer rejected: %s", why)), nil
		}

		out := deps.Tracker.DispatchAnswer(ctx, st.Client, store, int64(questionID), text, "mcp")
		switch out.Status {
		case dispatch.StatusSent:
			return mcpText(fmt.Sprintf("Answer sent for question %d in %s", questionID, store)), nil
		case dispatch.StatusAlreadyHandled:
			return mcpError(fmt.Sprintf("question %d was already answered", questionID)), nil
		default:
			return mcpError(fmt.Sprintf("sending answer: %v", out.Err)), nil
		}
	}
}

func mcpAnswerLog(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		answers, err := deps.Knowledge.RecentAnswers(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing answers: %v", err)), nil
		}
		if answers == nil {
			answers = []knowledge.AnswerRecord{}
		}

		b, err := json.Marshal(answers)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answers: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
