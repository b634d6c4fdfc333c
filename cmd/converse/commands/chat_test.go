// ABOUTME: Tests for the chat command and its loop
// ABOUTME: Drives the CLI end to end against a stub completion server
package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/harper/converse-standalone/internal/config"
	"github.com/harper/converse-standalone/internal/llm"
)

// completionStub answers every request with the same status and reply
type completionStub struct {
	mu       sync.Mutex
	status   int
	reply    string
	requests []llm.RequestPayload
}

func (s *completionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload llm.RequestPayload
	_ = json.NewDecoder(r.Body).Decode(&payload)

	s.mu.Lock()
	s.requests = append(s.requests, payload)
	s.mu.Unlock()

	w.WriteHeader(s.status)
	_, _ = io.WriteString(w, s.reply)
}

func (s *completionStub) calls() []llm.RequestPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.RequestPayload(nil), s.requests...)
}

func replyJSON(content string, prompt, completion int) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-35-turbo",`+
		`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}],`+
		`"usage":{"prompt_tokens":%d,"completion_tokens":%d,"total_tokens":%d}}`,
		content, prompt, completion, prompt+completion)
}

func newCompletionStub(t *testing.T, status int, reply string) (*completionStub, string) {
	t.Helper()
	stub := &completionStub{status: status, reply: reply}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, srv.URL
}

// runConverse executes the root command with input on stdin
func runConverse(t *testing.T, endpoint, input string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{
		config.KeyMaxTokens, config.KeyTemperature, config.KeySystemMessage,
		config.KeyTimeout, config.KeyHistoryWidth,
	} {
		t.Setenv(config.EnvName(key), "")
	}
	t.Setenv("OPENAI_KEY", "test-key")
	t.Setenv("OPENAI_URI", endpoint)

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestChat_GreetingThenHistory(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 5, 2))

	out, _, err := runConverse(t, endpoint, "history\nquit\n")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{
		"Hello",
		usageHint,
		"Tokens In: 5 Out: 2 --> What is your question?",
		"system: You are a general assistant",
		"assistant: Hello",
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := len(stub.calls()); got != 1 {
		t.Errorf("gateway calls = %d, want 1 (history must not call the service)", got)
	}
}

func TestChat_AskAccumulatesUsage(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Go is a language.", 5, 2))

	out, _, err := runConverse(t, endpoint, "What is Go?\nquit\n")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(out, "Tokens In: 10 Out: 4") {
		t.Errorf("usage should accumulate across turns:\n%s", out)
	}

	calls := stub.calls()
	if len(calls) != 2 {
		t.Fatalf("gateway calls = %d, want 2", len(calls))
	}
	turns := calls[1].Turns()
	wantRoles := []string{"system", "assistant", "user"}
	if len(turns) != len(wantRoles) {
		t.Fatalf("second request has %d messages, want %d", len(turns), len(wantRoles))
	}
	for i, role := range wantRoles {
		if string(turns[i].Role) != role {
			t.Errorf("message %d role = %s, want %s", i, turns[i].Role, role)
		}
	}
	if turns[2].Content != "What is Go?" {
		t.Errorf("user content = %q", turns[2].Content)
	}
}

func TestChat_ServerErrorKeepsLooping(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusInternalServerError, `{"error":"boom"}`)

	out, _, err := runConverse(t, endpoint, "hi\nhistory\nquit\n")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(out, "Error: completion service returned HTTP 500") {
		t.Errorf("output should report the status:\n%s", out)
	}
	if !strings.Contains(out, "user: hi") {
		t.Errorf("history should still list the user turn:\n%s", out)
	}
	if strings.Contains(out, "assistant:") {
		t.Errorf("no assistant turn should be recorded:\n%s", out)
	}
	if !strings.Contains(out, "Tokens In: 0 Out: 0") {
		t.Errorf("usage should stay at zero:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("loop should continue to quit:\n%s", out)
	}
	if got := len(stub.calls()); got != 2 {
		t.Errorf("gateway calls = %d, want 2", got)
	}
}

func TestChat_EmptyChoicesIsReported(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusOK, `{"choices":[]}`)

	out, _, err := runConverse(t, endpoint, "quit\n")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Error: malformed completion response") {
		t.Errorf("output should report malformed response:\n%s", out)
	}
}

func TestChat_QuitCommands(t *testing.T) {
	for _, input := range []string{"quit", "exit", "QUIT", "Exit", "  quit  "} {
		t.Run(input, func(t *testing.T) {
			stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 1, 1))

			out, _, err := runConverse(t, endpoint, input+"\nnever sent\n", "--no-greeting")
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !strings.Contains(out, "Goodbye!") {
				t.Errorf("output missing Goodbye!:\n%s", out)
			}
			if got := len(stub.calls()); got != 0 {
				t.Errorf("gateway calls = %d, want 0", got)
			}
		})
	}
}

func TestChat_EOFEndsLoop(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 1, 1))

	_, _, err := runConverse(t, endpoint, "\n\n   \n", "--no-greeting")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := len(stub.calls()); got != 0 {
		t.Errorf("blank lines should not be sent, got %d calls", got)
	}
}

func TestChat_Quiet(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 1, 1))

	out, _, err := runConverse(t, endpoint, "quit\n", "--quiet")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Contains(out, "Tokens In:") || strings.Contains(out, usageHint) {
		t.Errorf("quiet output should omit prompts and hints:\n%s", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Errorf("quiet output should still show replies:\n%s", out)
	}
}

func TestChat_FlagsShapeRequests(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Arr", 1, 1))

	_, _, err := runConverse(t, "https://unused.invalid/chat", "quit\n",
		"chat",
		"--endpoint", endpoint,
		"--max-tokens", "7",
		"--temperature", "0",
		"--system", "You are a pirate",
	)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	calls := stub.calls()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	if calls[0].MaxTokens != 7 {
		t.Errorf("max_tokens = %d, want 7", calls[0].MaxTokens)
	}
	if calls[0].Temperature != 0 {
		t.Errorf("temperature = %v, want 0", calls[0].Temperature)
	}
	if got := calls[0].Messages[0].Content; got != "You are a pirate" {
		t.Errorf("system message = %q", got)
	}
}

func TestChat_HistoryWidthTruncates(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusOK, replyJSON(strings.Repeat("x", 50), 1, 1))

	out, _, err := runConverse(t, endpoint, "history\nquit\n", "--history-width", "10")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "assistant: xxxxxxx...") {
		t.Errorf("history should truncate long turns:\n%s", out)
	}
}

func TestChat_VerboseLogsToStderr(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 5, 2))

	out, errOut, err := runConverse(t, endpoint, "quit\n", "--verbose")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(errOut, "completion received") {
		t.Errorf("stderr should carry debug logs:\n%s", errOut)
	}
	if strings.Contains(out, "completion received") {
		t.Error("debug logs should not be written to stdout")
	}
}

func TestChat_VerboseLogsFailureStatus(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusInternalServerError, `{"error":"boom"}`)

	_, errOut, err := runConverse(t, endpoint, "hi\nquit\n", "--verbose", "--no-greeting")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(errOut, "exchange failed") || !strings.Contains(errOut, "status=500") {
		t.Errorf("stderr should log the failed status:\n%s", errOut)
	}
}

func TestChat_OverlongLineKeepsLooping(t *testing.T) {
	stub, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Short answer", 3, 2))

	input := strings.Repeat("a", maxInputLine+10) + "\nWhat is Go?\nquit\n"
	out, _, err := runConverse(t, endpoint, input, "--no-greeting")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(out, "Error: "+errLineTooLong.Error()) {
		t.Errorf("output should report the overlong line")
	}
	if !strings.Contains(out, "Short answer") || !strings.Contains(out, "Goodbye!") {
		t.Errorf("loop should continue after an overlong line")
	}
	calls := stub.calls()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	msgs := calls[0].Messages
	if last := msgs[len(msgs)-1]; last.Content != "What is Go?" {
		t.Errorf("last message = %q, want the next line", last.Content)
	}
}

func TestReadLine(t *testing.T) {
	long := strings.Repeat("b", maxInputLine+1)
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single line", "hello\n", []string{"hello"}},
		{"no trailing newline", "hello", []string{"hello"}},
		{"crlf", "hello\r\nworld\r\n", []string{"hello", "world"}},
		{"longer than reader buffer", strings.Repeat("x", 100) + "\nnext\n", []string{strings.Repeat("x", 100), "next"}},
		{"overlong then next", long + "\nnext\n", []string{"!", "next"}},
		{"overlong at eof", long, []string{"!"}},
		{"blank lines", "\n\n", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReaderSize(strings.NewReader(tt.input), 16)
			var got []string
			for {
				line, err := readLine(r)
				if errors.Is(err, io.EOF) {
					break
				}
				if errors.Is(err, errLineTooLong) {
					got = append(got, "!")
					continue
				}
				if err != nil {
					t.Fatalf("readLine() error = %v", err)
				}
				got = append(got, line)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %.20q, want %.20q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChat_MissingCredential(t *testing.T) {
	_, endpoint := newCompletionStub(t, http.StatusOK, replyJSON("Hello", 1, 1))
	t.Setenv("OPENAI_KEY", "")

	cmd := NewRootCmd()
	t.Setenv("OPENAI_URI", endpoint)
	var output bytes.Buffer
	cmd.SetIn(strings.NewReader("quit\n"))
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("Execute() error = %v, want ErrMissingCredential", err)
	}
	if strings.Contains(output.String(), "Tokens In") {
		t.Error("chat should not start without credentials")
	}
}

func TestClassifyInput(t *testing.T) {
	tests := []struct {
		line string
		want inputKind
	}{
		{"", inputEmpty},
		{"quit", inputQuit},
		{"QUIT", inputQuit},
		{"exit", inputQuit},
		{"Exit", inputQuit},
		{"history", inputHistory},
		{"HISTORY", inputHistory},
		{"history please", inputMessage},
		{"quitting time", inputMessage},
		{"What is Go?", inputMessage},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := classifyInput(tt.line); got != tt.want {
				t.Errorf("classifyInput(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
