// Package tactics proposes next proof steps for an open goal using a
// language model.
package tactics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/provekit/pkg/models"
)

// DefaultMaxSuggestions is used when a request does not set a limit.
const DefaultMaxSuggestions = 5

// ErrNoSuggestions is returned when the backend answered but produced no
// usable suggestion.
var ErrNoSuggestions = errors.New("no valid tactic suggestions")

// Request describes the goal to make progress on.
type Request struct {
	Prover models.ProverKind
	// Goal is the statement or proof obligation, in the prover's syntax.
	Goal string
	// Context is the surrounding proof script, if any.
	Context string
	// ProverOutput is the prover's last error or goal display.
	ProverOutput string
	// Max caps the number of suggestions. Zero means the suggester default.
	Max int
}

// Suggester proposes tactics.
type Suggester interface {
	Suggest(ctx context.Context, req Request) ([]models.TacticSuggestion, error)
}

// parseSuggestions extracts the first JSON array in text, drops invalid
// entries, orders by confidence and keeps at most limit.
func parseSuggestions(text string, limit int) ([]models.TacticSuggestion, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in response", models.ErrParseFailed)
	}

	var raw []models.TacticSuggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseFailed, err)
	}

	out := raw[:0]
	for _, s := range raw {
		s.Tactic = strings.TrimSpace(s.Tactic)
		if s.Valid() {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSuggestions
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const systemPrompt = `You are an expert in interactive theorem proving.
Given a proof goal for a specific prover, propose the next tactics to try.
Answer with a JSON array only, no prose. Each element has the fields
"tactic" (the exact tactic text in the prover's syntax), "confidence"
(a number between 0 and 1) and "explanation" (one short sentence).`

func buildPrompt(req Request, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prover: %s\n", req.Prover)
	fmt.Fprintf(&b, "Return at most %d suggestions.\n\n", limit)
	fmt.Fprintf(&b, "Goal:\n%s\n", strings.TrimSpace(req.Goal))
	if c := strings.TrimSpace(req.Context); c != "" {
		fmt.Fprintf(&b, "\nProof so far:\n%s\n", c)
	}
	if o := strings.TrimSpace(req.ProverOutput); o != "" {
		fmt.Fprintf(&b, "\nProver output:\n%s\n", o)
	}
	return b.String()
}
