package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

type State string

const (
	Analyze   State = "ANALYZE"
	NoRewrite State = "NO_REWRITE"
	Rewrite   State = "REWRITE"
	Done      State = "DONE"
)

// Decision is either unchanged (Rewritten=false, Effective=Original) or a rewrite.
type Decision struct {
	Original  string
	Effective string
	Rewritten bool
	Reason    string
	Trigger   Detection
	// Degraded is set when the model rewrite could not run or gave nothing usable; the question is then
	// kept or, without a provider, resolved offline.
	Degraded bool
	Warning  string
	Path     []State
}

func Unchanged(question, reason string) Decision {
	return Decision{Original: question, Effective: question, Reason: reason}
}

func Rewritten(original, rewritten, reason string) Decision {
	return Decision{Original: original, Effective: rewritten, Rewritten: true, Reason: reason}
}

type Rewriter struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

// New accepts a nil provider; referring questions are then resolved offline from the entity table.
func New(provider llm.Provider) *Rewriter {
	return &Rewriter{provider: provider, logger: logger_i.NewLogger("query_rewriter")}
}

type run struct {
	question  string
	mem       memory.Context
	detection Detection
	decision  Decision
	path      []State
}

// Rewrite never fails: generation problems degrade to the original question with a warning.
func (r *Rewriter) Rewrite(ctx context.Context, question string, mem memory.Context) Decision {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("query_rewrite", time.Since(start)) }()

	m := &run{question: question, mem: mem}
	state := Analyze
	for state != Done {
		m.path = append(m.path, state)
		switch state {
		case Analyze:
			state = r.analyze(m)
		case NoRewrite:
			state = r.keep(m)
		case Rewrite:
			state = r.rewrite(ctx, m)
		default:
			panic(fmt.Sprintf("rewrite: unknown state %q", state))
		}
	}
	m.path = append(m.path, Done)

	m.decision.Trigger = m.detection
	m.decision.Path = m.path
	switch {
	case m.decision.Rewritten:
		metrics.CountRewrite("rewritten")
	case m.decision.Degraded:
		metrics.CountRewrite("fallback")
	default:
		metrics.CountRewrite("unchanged")
	}
	r.logger.FromContext(ctx).Debug("rewrite decision", "rewritten", m.decision.Rewritten, "reason", m.decision.Reason, "path", m.path)
	return m.decision
}

func (r *Rewriter) analyze(m *run) State {
	m.detection = Detect(m.question)
	if !m.detection.Found() {
		return NoRewrite
	}
	if m.mem.Entities.Empty() && len(m.mem.History) == 0 {
		return NoRewrite
	}
	return Rewrite
}

func (r *Rewriter) keep(m *run) State {
	if m.detection.Found() {
		m.decision = Unchanged(m.question, fmt.Sprintf("%s %q found but there is no conversation context to resolve it", m.detection.Kind, m.detection.Expression))
	} else {
		m.decision = Unchanged(m.question, "no referring expression")
	}
	return Done
}

// rewrite finishes in Done either way; a failed or empty generation keeps the original question.
func (r *Rewriter) rewrite(ctx context.Context, m *run) State {
	trigger := fmt.Sprintf("%s %q", m.detection.Kind, m.detection.Expression)

	if r.provider == nil {
		m.decision = r.offline(m, trigger)
		return Done
	}

	out, err := r.provider.Generate(ctx, llm.Request{
		System:      rewriteSystemPrompt,
		Prompt:      buildRewritePrompt(m.question, m.mem),
		Temperature: config.RewriteTemperature,
	})
	if err != nil {
		metrics.CountGenerationFallback("rewrite")
		m.decision = r.degraded(m.question, trigger, err.Error())
		return Done
	}

	candidate := cleanOutput(out)
	if candidate == "" || candidate == strings.TrimSpace(m.question) {
		m.decision = Unchanged(m.question, "rewrite produced no change for "+trigger)
		m.decision.Degraded = true
		return Done
	}

	m.decision = Rewritten(m.question, candidate, "resolved "+trigger+" using conversation memory")
	return Done
}

func (r *Rewriter) offline(m *run, trigger string) Decision {
	const cause = "no generation service configured"
	out, how := resolveOffline(m.question, m.mem)
	if out == m.question {
		return r.degraded(m.question, trigger, cause)
	}
	d := Rewritten(m.question, out, "resolved "+trigger+" offline: "+how)
	d.Degraded = true
	d.Warning = "query rewritten without a model: " + cause
	return d
}

func (r *Rewriter) degraded(question, trigger, cause string) Decision {
	d := Unchanged(question, "rewrite skipped for "+trigger+": "+cause)
	d.Degraded = true
	d.Warning = "query rewrite unavailable: " + cause
	return d
}

// cleanOutput keeps the first non-empty line and strips labels and quotes models like to add.
func cleanOutput(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, prefix := range []string{"Rewritten question:", "Rewritten:", "Question:"} {
			if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
				line = strings.TrimSpace(line[len(prefix):])
			}
		}
		return strings.TrimSpace(strings.Trim(line, "\"'`"))
	}
	return ""
}
