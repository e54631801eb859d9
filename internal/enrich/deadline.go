package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/internal/logging"
)

// isoDate is the only output shape accepted from the deadline call.
var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const deadlineSystem = `You convert a free-text deadline phrase into a calendar date. You respond
with a single date in YYYY-MM-DD format, or the word null, and nothing else.`

// ParseDeadline resolves a free-text deadline phrase against the reference
// date. It returns the ISO date, or "" when the phrase is empty, ambiguous,
// or the model's output fails the YYYY-MM-DD contract — an unresolved
// deadline is a normal outcome, not an error. An empty phrase never reaches
// the gateway.
func (e *Engine) ParseDeadline(ctx context.Context, phrase string, ref time.Time) (string, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(`Today is %s.

Deadline phrase: %q

Rules:
- "next <weekday>" means the soonest future occurrence of that weekday,
  strictly after today.
- "this <weekday>" means that weekday of the current week, unless it has
  already passed, in which case roll to next week.
- "<N> working days" means N business days forward, skipping weekends.
- "<N> days" means N calendar days forward.
- If the phrase is ambiguous or not a deadline, answer null.

Answer with the resolved date in YYYY-MM-DD format, or null.`,
		ref.Format("Monday, 2006-01-02"), phrase)

	raw, err := e.gateway.Complete(ctx, llm.CompletionRequest{
		System: deadlineSystem,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("deadline parsing: %w", err)
	}

	answer := strings.TrimSpace(raw)
	answer = strings.Trim(answer, "\"'`")

	if !isoDate.MatchString(answer) {
		if !strings.EqualFold(answer, "null") {
			logging.Warn("deadline output did not match YYYY-MM-DD, treating as unset",
				"phrase", phrase, "output", answer)
		}
		return "", nil
	}

	return answer, nil
}
