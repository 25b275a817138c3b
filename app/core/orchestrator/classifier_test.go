package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeReasoner struct {
	reply string
	err   error
	calls int
}

func (f *fakeReasoner) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func testRegistry() *Registry {
	return NewRegistry([]WorkerAgent{
		{Name: "code_master", Category: "code", Endpoint: "http://localhost:8003/execute"},
		{Name: "design_genius", Category: "design", Endpoint: "http://localhost:8004/execute"},
		{Name: "fullstack_pro", Category: "development", Endpoint: "http://localhost:8005/execute"},
	})
}

func TestClassifyByKeywords(t *testing.T) {
	c := NewClassifier(testRegistry(), nil, time.Second)

	cases := []struct {
		text string
		want string
	}{
		{"صمم لي لوجو وهوية بصرية", "design_genius"},
		{"اكتب كود دالة python", "code_master"},
		{"بدي موقع متجر الكتروني متكامل frontend backend", "fullstack_pro"},
	}
	for _, tc := range cases {
		agent, err := c.Classify(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("%q: classify failed: %v", tc.text, err)
		}
		if agent.Name != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.want, agent.Name)
		}
	}
}

func TestClassifyRefinesAmbiguousViaReasoner(t *testing.T) {
	r := &fakeReasoner{reply: `{"category": "design"}`}
	c := NewClassifier(testRegistry(), r, time.Second)

	agent, err := c.Classify(context.Background(), "ساعدني بشي حلو")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if agent.Name != "design_genius" {
		t.Fatalf("expected refined design agent, got %s", agent.Name)
	}
	if r.calls != 1 {
		t.Fatalf("expected one reasoner call, got %d", r.calls)
	}
}

func TestClassifyToleratesProseAroundJSON(t *testing.T) {
	r := &fakeReasoner{reply: "Sure! Here is my answer:\n```json\n{\"category\":\"code\"}\n```"}
	c := NewClassifier(testRegistry(), r, time.Second)

	agent, err := c.Classify(context.Background(), "مرحبا ساعدني")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if agent.Name != "code_master" {
		t.Fatalf("expected code_master, got %s", agent.Name)
	}
}

func TestClassifyRoutingFailed(t *testing.T) {
	r := &fakeReasoner{err: errors.New("unavailable")}
	c := NewClassifier(testRegistry(), r, time.Second)

	if _, err := c.Classify(context.Background(), "مرحبا"); !errors.Is(err, ErrRoutingFailed) {
		t.Fatalf("expected ErrRoutingFailed, got %v", err)
	}
}

func TestClassifyRejectsUnregisteredRefinement(t *testing.T) {
	r := &fakeReasoner{reply: `{"category": "music"}`}
	c := NewClassifier(testRegistry(), r, time.Second)

	if _, err := c.Classify(context.Background(), "غنيلي شي"); !errors.Is(err, ErrRoutingFailed) {
		t.Fatalf("expected ErrRoutingFailed for unregistered category, got %v", err)
	}
}

func TestKeywordTieIsNotDecisive(t *testing.T) {
	// one design keyword and one code keyword
	category, decisive := keywordCategory("design code")
	if decisive {
		t.Fatalf("expected tie to be non-decisive, got category %q", category)
	}
}

func TestParseExecuteReply(t *testing.T) {
	if _, err := parseExecuteReply("a", "not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := parseExecuteReply("a", `{"success": false, "message": "no capacity"}`); err == nil {
		t.Fatal("expected error for success=false")
	}
	out, err := parseExecuteReply("a", `{"success": true, "content": "hello"}`)
	if err != nil || out != "hello" {
		t.Fatalf("unexpected reply parse: %q %v", out, err)
	}
}
