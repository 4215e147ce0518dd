package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Decision is a reviewer's answer to one suggestion.
type Decision string

// Decision constants.
const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
	DecisionSkip   Decision = "skip"
	DecisionQuit   Decision = "quit"
)

// ReviewStats summarizes a review session.
type ReviewStats struct {
	Accepted int
	Rejected int
	Skipped  int
}

// Reviewer walks a person through pending suggestions. Nothing is confirmed without
// an explicit answer.
type Reviewer struct {
	store  knowledge.Store
	reader *bufio.Reader
	writer io.Writer
}

// NewReviewer creates a reviewer reading answers from r and prompting on w.
func NewReviewer(store knowledge.Store, r io.Reader, w io.Writer) *Reviewer {
	return &Reviewer{
		store:  store,
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// Review asks about every pending suggestion of a client.
func (rv *Reviewer) Review(ctx context.Context, clientID string) (ReviewStats, error) {
	var stats ReviewStats

	pending, err := rv.store.Suggestions(ctx, clientID, model.SuggestionPending)
	if err != nil {
		return stats, fmt.Errorf("failed to load pending suggestions: %w", err)
	}
	if len(pending) == 0 {
		_, err := fmt.Fprintln(rv.writer, FormatInfo("No pending suggestions"))
		return stats, err
	}

	for i, s := range pending {
		body := fmt.Sprintf("%s\n%s\n\n%s %s",
			s.Description,
			SubtleStyle.Render(string(s.Knowledge.Key)+" "+string(s.Knowledge.Value)),
			SubtleStyle.Render("id"), s.ID)
		if _, err := fmt.Fprintln(rv.writer, RenderBox(fmt.Sprintf("%s %s (%d/%d)", BulbIcon, s.Title, i+1, len(pending)), body)); err != nil {
			return stats, err
		}

		decision, err := rv.ask(ctx)
		if err != nil {
			return stats, err
		}

		switch decision {
		case DecisionAccept:
			if _, err := rv.store.Confirm(ctx, s.ID); err != nil {
				return stats, fmt.Errorf("failed to confirm %s: %w", s.ID, err)
			}
			stats.Accepted++
			fmt.Fprintln(rv.writer, FormatSuccess("Confirmed"))
		case DecisionReject:
			if err := rv.store.Reject(ctx, s.ID); err != nil {
				return stats, fmt.Errorf("failed to reject %s: %w", s.ID, err)
			}
			stats.Rejected++
			fmt.Fprintln(rv.writer, SubtleStyle.Render("Rejected"))
		case DecisionSkip:
			stats.Skipped++
		case DecisionQuit:
			stats.Skipped += len(pending) - i
			return stats, nil
		}
	}
	return stats, nil
}

// ask prompts until the answer is understood.
func (rv *Reviewer) ask(ctx context.Context) (Decision, error) {
	for {
		if _, err := fmt.Fprint(rv.writer, FormatPrompt("[a]ccept, [r]eject, [s]kip, [q]uit")); err != nil {
			return "", err
		}

		line, err := rv.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return DecisionQuit, nil
			}
			return "", err
		}

		if d, ok := parseDecision(line); ok {
			return d, nil
		}
		fmt.Fprintln(rv.writer, FormatWarning("Please answer a, r, s or q"))
	}
}

func parseDecision(answer string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a", "accept", "y", "yes":
		return DecisionAccept, true
	case "r", "reject", "n", "no":
		return DecisionReject, true
	case "s", "skip", "":
		return DecisionSkip, true
	case "q", "quit":
		return DecisionQuit, true
	}
	return "", false
}

// readLine reads one line and gives up when ctx is canceled. The pending read keeps
// the reader busy until input arrives.
func (rv *Reviewer) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := rv.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.value != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
