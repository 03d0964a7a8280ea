package brain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAdapterModes(t *testing.T) {
	ctx := context.Background()

	if _, err := NewAdapter(ctx, Config{Mode: "bogus"}); err == nil {
		t.Fatal("accepted unknown mode")
	}
	if _, err := NewAdapter(ctx, Config{Mode: "openai"}); err == nil {
		t.Fatal("openai mode without key should fail")
	}
	if _, err := NewAdapter(ctx, Config{Mode: "gemini"}); err == nil {
		t.Fatal("gemini mode without key should fail")
	}

	a, err := NewAdapter(ctx, Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto without keys = %T, want mock", a)
	}

	a, err = NewAdapter(ctx, Config{Mode: "auto", OpenAIAPIKey: "sk-test"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*OpenAIAdapter); !ok {
		t.Fatalf("auto with openai key = %T, want openai", a)
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(PromptRequest{
		SystemPrompt:      "You are helpful.",
		LanguageDirective: "Respond in French.",
		Transcript:        "User: hi\n",
	})
	want := "You are helpful.\nRespond in French.\n\nConversation:\nUser: hi\n"
	if got != want {
		t.Fatalf("BuildPrompt = %q, want %q", got, want)
	}

	got = BuildPrompt(PromptRequest{SystemPrompt: "Sys", Transcript: "User: hi\n"})
	if strings.Contains(got, "Respond in") {
		t.Fatalf("directive leaked into prompt: %q", got)
	}
}

func TestOpenAIAdapterGenerate(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer ts.Close()

	a := NewOpenAIAdapter("sk-test", "gpt-4o-mini", ts.URL)
	text, err := a.Generate(context.Background(), PromptRequest{
		SystemPrompt:      "You are helpful.",
		LanguageDirective: "Respond in Spanish.",
		Transcript:        "User: hola\n",
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if text != "hi there" {
		t.Fatalf("text = %q", text)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[0].Content, "Respond in Spanish.") {
		t.Fatalf("system message missing directive: %q", gotReq.Messages[0].Content)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "User: hola") {
		t.Fatalf("user message missing transcript: %q", gotReq.Messages[1].Content)
	}
}

func TestMockAdapterEchoesLastUserLine(t *testing.T) {
	a := NewMockAdapter()
	text, err := a.Generate(context.Background(), PromptRequest{
		Transcript: "User: first\nAssistant: ok\nUser: second\n",
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(text, "second") {
		t.Fatalf("mock reply = %q, want echo of last user line", text)
	}

	text, err = a.Generate(context.Background(), PromptRequest{})
	if err != nil || text == "" {
		t.Fatalf("mock reply on empty transcript = %q, %v", text, err)
	}
}
