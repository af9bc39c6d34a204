// Package aianalysis drives the optional AI-assisted root-cause analysis
// variant (§4.7 step 9): a bounded tool-calling loop over a genai model
// that can issue debugger commands through the driver and read back their
// output, grounded on the teacher's pkg/index/llm.go Gemini wiring
// generalized from one-shot summarization to a multi-turn tool loop.
package aianalysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

func timeoutOrDefault(cfg config.AIConfig) time.Duration {
	if cfg.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.TimeoutSec) * time.Second
}

// CommandRunner executes a raw debugger command, narrowed from
// driver.Driver so tests can fake it without a full driver.
type CommandRunner interface {
	Execute(ctx context.Context, command string) (string, error)
}

// SimilarCrash is one retrieved prior-crash summary fed to the model as
// grounding context (internal/crashindex).
type SimilarCrash struct {
	DumpID      string
	CrashType   string
	TopFunction string
	Summary     string
}

// Analyzer drives the bounded tool-calling loop described in §9's resolved
// Open Question: iterate until the model issues no further tool call, the
// iteration cap is reached, or ctx is cancelled, whichever comes first.
type Analyzer struct {
	client *genai.Client
	model  string
	cfg    config.AIConfig
}

// New constructs an Analyzer. Returns nil if cfg.Enabled is false or no
// API key is configured, mirroring the teacher's NewLLMClient nil-on-
// unconfigured convention.
func New(ctx context.Context, cfg config.AIConfig) (*Analyzer, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.KindBackendUnavailable, "create genai client", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Analyzer{client: client, model: model, cfg: cfg}, nil
}

const systemPrompt = `You are assisting with root-cause analysis of a crashed process from a memory dump.
You may issue one debugger command per turn to gather more evidence by responding with a single line "EXEC: <command>".
When you have enough evidence, respond with "ROOT_CAUSE: <one-sentence root cause>" followed by a "CONFIDENCE: <0-1>" line and a short "REASONING:" paragraph.`

// Run executes the bounded analysis loop against runner, seeded with doc's
// summary and any similar prior crashes, and returns the populated
// report.AIAnalysis. On non-success termination (iteration cap reached or
// ctx cancelled), RootCause is left empty and Reasoning explains why,
// per the §9 AI-loop resolution "never a partial rootCause guess".
func (a *Analyzer) Run(ctx context.Context, runner CommandRunner, doc *report.Report, similar []SimilarCrash) (*report.AIAnalysis, error) {
	maxIter := a.cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 6
	}

	var transcript strings.Builder
	transcript.WriteString("Crash summary: ")
	transcript.WriteString(doc.Analysis.Summary.Description)
	transcript.WriteString("\n")
	for _, sc := range similar {
		fmt.Fprintf(&transcript, "Similar prior crash %s (%s, top function %s): %s\n", sc.DumpID, sc.CrashType, sc.TopFunction, sc.Summary)
	}

	commands := make([]string, 0, maxIter)

	for i := 0; i < maxIter; i++ {
		select {
		case <-ctx.Done():
			return &report.AIAnalysis{
				Iterations:       i,
				CommandsExecuted: commands,
				Reasoning:        "cancelled by caller",
			}, nil
		default:
		}

		reply, err := a.complete(ctx, transcript.String())
		if err != nil {
			if ctx.Err() != nil {
				return &report.AIAnalysis{
					Iterations:       i,
					CommandsExecuted: commands,
					Reasoning:        "cancelled by caller",
				}, nil
			}
			return nil, errkind.Wrap(errkind.KindInternal, "genai completion", err)
		}

		if cmd, ok := parseExec(reply); ok {
			out, rerr := runner.Execute(ctx, cmd)
			commands = append(commands, cmd)
			if rerr != nil {
				out = "error: " + rerr.Error()
			}
			fmt.Fprintf(&transcript, "EXEC %s\nRESULT: %s\n", cmd, out)
			continue
		}

		if rc, conf, reasoning, ok := parseRootCause(reply); ok {
			return &report.AIAnalysis{
				RootCause:        rc,
				Confidence:       conf,
				Reasoning:        reasoning,
				Iterations:       i + 1,
				CommandsExecuted: commands,
			}, nil
		}

		fmt.Fprintf(&transcript, "MODEL: %s\n", reply)
	}

	return &report.AIAnalysis{
		Iterations:       maxIter,
		CommandsExecuted: commands,
		Reasoning:        "stopped after reaching the iteration limit",
	}, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(a.cfg))
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(a.cfg.Temperature)),
	}
	result, err := a.client.Models.GenerateContent(cctx, a.model, genai.Text(systemPrompt+"\n\n"+prompt), cfg)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from genai")
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	return text, nil
}

func parseExec(reply string) (string, bool) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "EXEC:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "EXEC:")), true
		}
	}
	return "", false
}

func parseRootCause(reply string) (rootCause string, confidence float64, reasoning string, ok bool) {
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ROOT_CAUSE:"):
			rootCause = strings.TrimSpace(strings.TrimPrefix(line, "ROOT_CAUSE:"))
			ok = true
		case strings.HasPrefix(line, "CONFIDENCE:"):
			fmt.Sscanf(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")), "%f", &confidence)
		case strings.HasPrefix(line, "REASONING:"):
			reasoning = strings.TrimSpace(strings.Join(lines[i:], "\n"))
			reasoning = strings.TrimPrefix(reasoning, "REASONING:")
			reasoning = strings.TrimSpace(reasoning)
		}
	}
	return
}
