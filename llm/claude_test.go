package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestBuildClaudeParams_SystemFolding(t *testing.T) {
	history := []Message{
		{Role: RoleSystem, Content: "first rule"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleSystem, Content: "second rule"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "follow-up"},
	}

	params := buildClaudeParams("test-model", 42, history)

	if params.Model != "test-model" {
		t.Errorf("model = %q", params.Model)
	}
	if params.MaxTokens != 42 {
		t.Errorf("maxTokens = %d", params.MaxTokens)
	}

	// All system-role turns go into the system prompt, in order,
	// regardless of where they sit in the history.
	if len(params.System) != 2 {
		t.Fatalf("system blocks = %d, want 2", len(params.System))
	}
	if params.System[0].Text != "first rule" || params.System[1].Text != "second rule" {
		t.Errorf("system blocks = %q, %q", params.System[0].Text, params.System[1].Text)
	}

	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	if len(params.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(params.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if params.Messages[i].Role != want {
			t.Errorf("messages[%d].Role = %q, want %q", i, params.Messages[i].Role, want)
		}
	}
	if got := params.Messages[0].Content[0].OfText.Text; got != "question" {
		t.Errorf("messages[0] text = %q", got)
	}
	if got := params.Messages[1].Content[0].OfText.Text; got != "answer" {
		t.Errorf("messages[1] text = %q", got)
	}
}

func TestBuildClaudeParams_NoSystemTurns(t *testing.T) {
	params := buildClaudeParams(claudeModel, claudeMaxTokens, []Message{
		{Role: RoleUser, Content: "hi"},
	})

	if len(params.System) != 0 {
		t.Errorf("system blocks = %d, want 0", len(params.System))
	}
	if len(params.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(params.Messages))
	}
}
