package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/llm"
)

// DefaultReflectiveQuestion is returned when the collaborator yields
// nothing usable.
const DefaultReflectiveQuestion = "What did you learn from this experience?"

const reflectSystemPrompt = `You are an AI assistant specialized in educational psychology and ethical reflection.
Your task is to generate a series of reflective questions for a student who is considering using an
LLM (Large Language Model) or similar tool to complete a specific academic assignment.
The goal of these questions is to prompt the student to pause, think critically about their decision,
and consider the implications of using the tool versus completing the assignment themselves. The
questions are intended to be a 'speed bump' before accessing the cheating functionality.
The questions should be rooted in scientific and psychological principles, including:
- Consequences analysis (examining potential short-term benefits vs. long-term costs, risks, missed opportunities)
- Values clarification (connecting the action to personal values like integrity, learning, growth)
- Motivational Interviewing techniques (exploring ambivalence, reasons for considering the tool, and reasons for doing the work authentically)
- Cognitive Behavioral Therapy principles (considering thoughts and feelings associated with the decision and its outcomes)
- Principles of learning and skill development (what the assignment is *meant* to teach, what is lost by bypassing it)
Make the questions as relevant and specific as possible to the learning objectives and content of the assignment.
Output JSON format: {"questions": ["Q1", "Q2", ...]}`

const reflectUserPrompt = `Generate between 5 and 8 distinct questions to present to a student who is considering using an LLM to
solve the following homework assignment.  The tone of the questions should be neutral and reflective,
not accusatory or preachy.  Ensure questions are concise enough to be easily read on a web or mobile interface.

- CLASS: %s
- ASSIGNMENT TYPE: General Assignment
- DESCRIPTION: %s

Questions should:
- Be open-ended and thought-provoking
- Focus on learning consequences, ethics, and personal growth
- Avoid accusatory language
- Be concise (max 15 words each)

Just to reiterate, the only output should be in JSON format: {"questions": ["Q1", "Q2", ...]}`

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// maxBraceCandidates bounds the parse attempts for malformed replies.
const maxBraceCandidates = 16

// ReflectiveQuestions asks the collaborator for reflection prompts tailored
// to the task. It always returns at least one question.
func (s *Solver) ReflectiveQuestions(ctx context.Context, className string, task *bundle.Task) []string {
	raw, err := s.client.Chat(ctx, llm.Request{
		Model: s.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: reflectSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(reflectUserPrompt, className, task.Description)},
		},
		Temperature: 0.3,
		Purpose:     "reflection",
	})
	if err != nil {
		s.logger.Error("reflective question generation failed", "task", task.Name, "err", err)
		s.report.Report("error_reflective_questions_generation")
		return []string{DefaultReflectiveQuestion}
	}

	questions := parseQuestions(raw)
	if len(questions) == 0 {
		s.logger.Error("no questions found in reflective response", "task", task.Name)
		s.report.Report("error_no_questions_in_response")
		return []string{DefaultReflectiveQuestion}
	}

	s.report.Report(fmt.Sprintf("reflective_questions_generated_%d", len(questions)))
	return questions
}

// parseQuestions recovers a {"questions": [...]} payload from a reply that
// may wrap the JSON in reasoning tags or prose. It strips <think> blocks,
// then tries brace-delimited candidates longest first before falling back
// to the whole cleaned text.
func parseQuestions(raw string) []string {
	cleaned := strings.TrimSpace(thinkTags.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return nil
	}

	for _, candidate := range braceCandidates(cleaned) {
		if qs := decodeQuestions(candidate); len(qs) > 0 {
			return qs
		}
	}
	return decodeQuestions(cleaned)
}

func decodeQuestions(s string) []string {
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil
	}

	out := payload.Questions[:0]
	for _, q := range payload.Questions {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}

// braceCandidates returns substrings spanning an opening and a closing
// brace, longest first, capped so a pathological reply stays cheap.
func braceCandidates(s string) []string {
	var opens, closes []int
	for i, r := range s {
		switch r {
		case '{':
			if len(opens) < maxBraceCandidates {
				opens = append(opens, i)
			}
		case '}':
			if len(closes) < maxBraceCandidates {
				closes = append(closes, i)
			}
		}
	}

	var candidates []string
	for _, o := range opens {
		for _, c := range closes {
			if c > o {
				candidates = append(candidates, s[o:c+1])
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	if len(candidates) > maxBraceCandidates {
		candidates = candidates[:maxBraceCandidates]
	}
	return candidates
}
