package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
)

type mockProvider struct {
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
	calls      int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	return m.OnGenerate(ctx, req)
}

func budgetMemory() memory.Context {
	m := memory.NewManager(5, nil)
	m.Record("What is the total budget?", "The total budget is $45,000 [msg: M-68e801dc, page: 1].")
	return m.Context()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		question string
		kind     Kind
		expr     string
	}{
		{"Who approved it?", KindPronoun, "it"},
		{"When did she send THAT?", KindPronoun, "she"},
		{"Was the proposal signed?", KindReference, "the proposal"},
		{"Which file was mentioned earlier?", KindReference, "earlier"},
		{"What about Friday?", KindEllipsis, "what about"},
		{"and the timeline?", KindEllipsis, "and the"},
		{"Who signed the lease agreement?", KindNone, ""},
		{"Item count?", KindNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := Detect(tt.question)
			if got.Kind != tt.kind || got.Expression != tt.expr {
				t.Errorf("Detect(%q) = %+v, want %s %q", tt.question, got, tt.kind, tt.expr)
			}
		})
	}
}

func TestRewrite_ResolvesPronounFromMemory(t *testing.T) {
	p := &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
		if !strings.Contains(req.Prompt, "amount: $45,000") {
			t.Errorf("prompt is missing the last mentioned amount:\n%s", req.Prompt)
		}
		if !strings.Contains(req.Prompt, "Follow-up question: Who approved it?") {
			t.Errorf("prompt is missing the question:\n%s", req.Prompt)
		}
		if req.Temperature != 0 {
			t.Errorf("rewrite temperature %v", req.Temperature)
		}
		return "Rewritten question: \"Who approved the $45,000 budget?\"\n", nil
	}}

	d := New(p).Rewrite(context.Background(), "Who approved it?", budgetMemory())
	if !d.Rewritten {
		t.Fatalf("expected a rewrite, got %+v", d)
	}
	if d.Effective != "Who approved the $45,000 budget?" || d.Original != "Who approved it?" {
		t.Errorf("unexpected decision %+v", d)
	}
	if d.Trigger.Kind != KindPronoun {
		t.Errorf("trigger %+v", d.Trigger)
	}
	want := []State{Analyze, Rewrite, Done}
	if !equalPath(d.Path, want) {
		t.Errorf("path %v, want %v", d.Path, want)
	}
}

func TestRewrite_NoReferringExpressionIsUnchanged(t *testing.T) {
	p := &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
		return "should not be called", nil
	}}
	r := New(p)
	for _, mem := range []memory.Context{{}, budgetMemory()} {
		for _, q := range []string{"Who signed the lease agreement?", "When does the migration start?"} {
			d := r.Rewrite(context.Background(), q, mem)
			if d.Rewritten || d.Effective != q || d.Degraded {
				t.Errorf("%q: %+v", q, d)
			}
			if !equalPath(d.Path, []State{Analyze, NoRewrite, Done}) {
				t.Errorf("%q: path %v", q, d.Path)
			}
		}
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times", p.calls)
	}
}

func TestRewrite_NoContextSkipsGeneration(t *testing.T) {
	p := &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
		return "x", nil
	}}
	d := New(p).Rewrite(context.Background(), "Who approved it?", memory.Context{})
	if d.Rewritten || p.calls != 0 {
		t.Errorf("expected no rewrite without context, got %+v", d)
	}
}

func TestRewrite_Fallbacks(t *testing.T) {
	tests := []struct {
		name        string
		provider    llm.Provider
		wantWarning bool
	}{
		{
			name: "provider_error",
			provider: &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
				return "", errors.New("service unavailable")
			}},
			wantWarning: true,
		},
		{
			name: "empty_output",
			provider: &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
				return "  \n ", nil
			}},
		},
		{
			name: "identical_output",
			provider: &mockProvider{OnGenerate: func(ctx context.Context, req llm.Request) (string, error) {
				return "  Who approved it?  ", nil
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.provider).Rewrite(context.Background(), "Who approved it?", budgetMemory())
			if d.Rewritten || d.Effective != "Who approved it?" {
				t.Fatalf("expected original question, got %+v", d)
			}
			if !d.Degraded {
				t.Error("expected degraded decision")
			}
			if (d.Warning != "") != tt.wantWarning {
				t.Errorf("warning %q", d.Warning)
			}
			if !equalPath(d.Path, []State{Analyze, Rewrite, Done}) {
				t.Errorf("path %v", d.Path)
			}
		})
	}
}

func TestRewrite_NoProviderResolvesOffline(t *testing.T) {
	d := New(nil).Rewrite(context.Background(), "Who approved it?", budgetMemory())
	if !d.Rewritten || d.Effective != "Who approved the $45,000 budget?" {
		t.Fatalf("expected offline rewrite, got %+v", d)
	}
	if !d.Degraded || d.Warning == "" {
		t.Errorf("offline rewrite should be flagged: %+v", d)
	}
	if !equalPath(d.Path, []State{Analyze, Rewrite, Done}) {
		t.Errorf("path %v", d.Path)
	}
}

func TestResolveOffline(t *testing.T) {
	mem := func(pairs ...string) memory.Context {
		c := memory.Context{Entities: memory.EntityTable{LastMentioned: map[memory.Category]string{}}}
		for i := 0; i+1 < len(pairs); i += 2 {
			c.Entities.LastMentioned[memory.Category(pairs[i])] = pairs[i+1]
		}
		return c
	}
	tests := []struct {
		name     string
		question string
		mem      memory.Context
		want     string
	}{
		{"amount_first", "Who approved it?", mem("amount", "$45,000", "file", "storage_proposal.pdf"), "Who approved the $45,000 budget?"},
		{"file_without_amount", "When was this sent?", mem("file", "storage_proposal.pdf"), "When was storage_proposal.pdf sent?"},
		{"person", "When did she approve?", mem("person", "Maria Lopez"), "When did Maria Lopez approve?"},
		{"both", "Did he sign it?", mem("person", "Ravi Shah", "amount", "$12,500"), "Did Ravi Shah sign the $12,500 budget?"},
		{"appends_context", "What about the timeline?", mem("file", "plan.pdf", "amount", "$9,000"), "What about the timeline? (plan.pdf, $9,000)"},
		{"nothing_to_use", "Who approved it?", mem("date", "2024-03-12"), "Who approved it?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := resolveOffline(tt.question, tt.mem)
			if got != tt.want {
				t.Errorf("resolveOffline(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestCleanOutput(t *testing.T) {
	tests := map[string]string{
		"plain":            "plain",
		"  'quoted'  ":     "quoted",
		"\n\nfirst\nsecond": "first",
		"question: who?":   "who?",
		"":                 "",
	}
	for in, want := range tests {
		if got := cleanOutput(in); got != want {
			t.Errorf("cleanOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func equalPath(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
