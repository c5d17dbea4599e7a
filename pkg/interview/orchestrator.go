// Package interview drives the AI interview state machine on top of a
// realtime session. The orchestrator owns the domain session (questions,
// notes, outcome) and exposes the tool functions the remote model calls to
// move the interview forward: start, ask, evaluate, take notes, end.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirevox/hirevox/pkg/tools"
	"github.com/hirevox/hirevox/pkg/transcript"
)

const collaboratorTimeout = 30 * time.Second

// Orchestrator coordinates one interview: it fetches context from the
// recruiting backend, mutates the domain session as the model calls tools,
// and persists the outcome exactly once.
type Orchestrator struct {
	jobs       JobDirectory
	candidates CandidateDirectory
	scorer     AnswerScorer
	store      InterviewStore
	logger     *slog.Logger

	candidateID string
	jobID       string

	mu      sync.Mutex
	session *Session
}

// New creates an orchestrator for one candidate/job pair.
func New(candidateID, jobID string, jobs JobDirectory, candidates CandidateDirectory, scorer AnswerScorer, store InterviewStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:        jobs,
		candidates:  candidates,
		scorer:      scorer,
		store:       store,
		logger:      logger.With("component", "interview.orchestrator"),
		candidateID: candidateID,
		jobID:       jobID,
	}
}

// Session returns a snapshot of the domain session, or nil before
// StartInterview.
func (o *Orchestrator) Session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	snap := *o.session
	snap.Questions = append([]Question(nil), o.session.Questions...)
	snap.Notes = append([]Note(nil), o.session.Notes...)
	return &snap
}

// StartInterview fetches the job and candidate context and constructs the
// domain session. Safe to call again after a failure; a second call during
// an active interview returns the existing question list.
func (o *Orchestrator) StartInterview(ctx context.Context) (*Session, error) {
	o.mu.Lock()
	if o.session != nil && o.session.Active {
		o.mu.Unlock()
		return o.Session(), nil
	}
	o.mu.Unlock()

	job, err := o.jobs.Job(ctx, o.jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", o.jobID, err)
	}
	cand, err := o.candidates.Candidate(ctx, o.candidateID)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate %s: %w", o.candidateID, err)
	}

	session := &Session{
		ID:             uuid.NewString(),
		CandidateID:    cand.ID,
		JobID:          job.ID,
		JobTitle:       job.Title,
		JobDescription: job.Description,
		CandidateName:  cand.Name,
		Questions:      append([]Question(nil), job.Questions...),
		Active:         true,
		StartTime:      time.Now(),
	}

	o.mu.Lock()
	o.session = session
	o.mu.Unlock()

	o.logger.Info("interview started",
		"interview_id", session.ID,
		"job", job.Title,
		"candidate", cand.Name,
		"questions", len(session.Questions),
	)
	return o.Session(), nil
}

// AskQuestion marks the matching question as asked. Matching prefers the
// stable question id when the model echoes it, falling back to exact text.
func (o *Orchestrator) AskQuestion(questionID, questionText string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil || !o.session.Active {
		return fmt.Errorf("no active interview session")
	}
	i := o.matchQuestionLocked(questionID, questionText)
	if i < 0 {
		return fmt.Errorf("question not found: %s", questionText)
	}
	o.session.Questions[i].Asked = true
	return nil
}

// EvaluateAnswer scores an answer through the backend and attaches the
// result to the matching question.
func (o *Orchestrator) EvaluateAnswer(ctx context.Context, questionID, questionText, answer, category string) (*AnswerScore, error) {
	o.mu.Lock()
	if o.session == nil || !o.session.Active {
		o.mu.Unlock()
		return nil, fmt.Errorf("no active interview session")
	}
	jobID := o.session.JobID
	i := o.matchQuestionLocked(questionID, questionText)
	o.mu.Unlock()

	score, err := o.scorer.ScoreAnswer(ctx, ScoreRequest{
		Question: questionText,
		Answer:   answer,
		Category: category,
		JobID:    jobID,
	})
	if err != nil {
		return nil, fmt.Errorf("score answer: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= 0 && o.session != nil {
		q := &o.session.Questions[i]
		q.Answer = answer
		q.Evaluation = score.Evaluation
		q.Score = score.Score
	} else {
		// A paraphrased question silently drops the score; surface it in
		// the logs so the mismatch is visible.
		o.logger.Warn("evaluated answer matched no question", "question", questionText)
	}
	return score, nil
}

// TakeNote appends an observation to the session.
func (o *Orchestrator) TakeNote(text, category string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil || !o.session.Active {
		return fmt.Errorf("no active interview session")
	}
	o.session.Notes = append(o.session.Notes, Note{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  category,
		Timestamp: time.Now(),
	})
	return nil
}

// EndInterview persists the outcome and flips the session to terminal.
// It is the sole transition to Active=false and runs exactly once: a second
// call fails without re-persisting. The transcript prefers, in order, the
// explicit conversation text, the live conversation log, and finally the
// asked/answered question pairs.
func (o *Orchestrator) EndInterview(ctx context.Context, summary string, score int, conversation string) (string, error) {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return "", fmt.Errorf("no active interview session")
	}
	if !o.session.Active {
		o.mu.Unlock()
		return "", fmt.Errorf("interview already ended")
	}
	session := o.session
	text := strings.TrimSpace(conversation)
	if text == "" {
		text = o.fallbackTranscriptLocked()
	}
	o.mu.Unlock()

	rec := Record{
		CandidateID: session.CandidateID,
		JobID:       session.JobID,
		Transcript:  text,
		Summary:     summary,
		Score:       clampScore(score),
	}
	id, err := o.store.SaveInterview(ctx, rec)
	if err != nil {
		// Persistence failure is loss of interview data; leave the session
		// active so the call can be retried.
		return "", fmt.Errorf("save interview: %w", err)
	}

	o.mu.Lock()
	session.Active = false
	session.EndTime = time.Now()
	session.OverallScore = rec.Score
	session.Summary = summary
	o.mu.Unlock()

	o.logger.Info("interview ended", "interview_id", id, "score", rec.Score)

	// Deep analysis is fire-and-forget: its failure must never fail the
	// interview.
	go func() {
		actx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		if err := o.store.Analyze(actx, AnalysisRequest{
			InterviewID:    id,
			Transcript:     rec.Transcript,
			JobTitle:       session.JobTitle,
			JobDescription: session.JobDescription,
			CandidateName:  session.CandidateName,
		}); err != nil {
			o.logger.Warn("post-interview analysis failed", "interview_id", id, "error", err)
		}
	}()

	return id, nil
}

// fallbackTranscriptLocked renders asked questions with answers as Q/A
// pairs. Used when no conversation text is available.
func (o *Orchestrator) fallbackTranscriptLocked() string {
	var b strings.Builder
	for _, q := range o.session.Questions {
		if !q.Asked || q.Answer == "" {
			continue
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", q.Text, q.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) matchQuestionLocked(id, text string) int {
	if id != "" {
		for i, q := range o.session.Questions {
			if q.ID == id {
				return i
			}
		}
	}
	for i, q := range o.session.Questions {
		if q.Text == text {
			return i
		}
	}
	return -1
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// toolResult is the payload fed back to the model after each tool call.
type toolResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Questions []Question `json:"questions,omitempty"`
}

func encodeResult(res toolResult) string {
	data, err := json.Marshal(res)
	if err != nil {
		return `{"success":false,"message":"internal encoding failure"}`
	}
	return string(data)
}

func failure(format string, args ...any) string {
	return encodeResult(toolResult{Success: false, Message: fmt.Sprintf(format, args...)})
}

// Tools returns the interview capability set for registration into a
// realtime session's tool registry. The handlers close over the
// orchestrator and the session's conversation log; the capability object is
// passed in explicitly, so there is no registration side-channel to guard.
func (o *Orchestrator) Tools(log *transcript.Log) []tools.Tool {
	return []tools.Tool{
		{
			Name:        "start_interview",
			Description: "Begin the interview. Loads the job, the candidate, and the question list. Call this first.",
			Handler: func(args map[string]any) (string, error) {
				ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
				defer cancel()

				session, err := o.StartInterview(ctx)
				if err != nil {
					return failure("could not start interview: %v", err), nil
				}
				return encodeResult(toolResult{
					Success:   true,
					Message:   fmt.Sprintf("Interviewing %s for %s", session.CandidateName, session.JobTitle),
					Questions: session.Questions,
				}), nil
			},
		},
		{
			Name:        "ask_question",
			Description: "Record that a screening question is being asked. Pass the question text verbatim and its id.",
			Parameters: map[string]any{
				"question_id": map[string]any{
					"type":        "string",
					"description": "Stable id of the question being asked",
				},
				"question": map[string]any{
					"type":        "string",
					"description": "The question text, verbatim",
				},
				"category": map[string]any{
					"type": "string",
				},
			},
			Handler: func(args map[string]any) (string, error) {
				id, _ := args["question_id"].(string)
				text, _ := args["question"].(string)
				if err := o.AskQuestion(id, text); err != nil {
					return failure("%v", err), nil
				}
				return encodeResult(toolResult{Success: true, Message: "question marked as asked"}), nil
			},
		},
		{
			Name:        "evaluate_answer",
			Description: "Score the candidate's answer to a question. Pass the question verbatim with its id, and the full answer.",
			Parameters: map[string]any{
				"question_id": map[string]any{"type": "string"},
				"question":    map[string]any{"type": "string"},
				"answer":      map[string]any{"type": "string"},
				"category":    map[string]any{"type": "string"},
			},
			Handler: func(args map[string]any) (string, error) {
				ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
				defer cancel()

				id, _ := args["question_id"].(string)
				text, _ := args["question"].(string)
				answer, _ := args["answer"].(string)
				category, _ := args["category"].(string)

				score, err := o.EvaluateAnswer(ctx, id, text, answer, category)
				if err != nil {
					return failure("%v", err), nil
				}
				return encodeResult(toolResult{
					Success: true,
					Message: fmt.Sprintf("scored %d/100: %s", score.Score, score.Evaluation),
				}), nil
			},
		},
		{
			Name:        "take_notes",
			Description: "Record a private interviewer observation about the candidate.",
			Parameters: map[string]any{
				"note":     map[string]any{"type": "string"},
				"category": map[string]any{"type": "string"},
			},
			Handler: func(args map[string]any) (string, error) {
				note, _ := args["note"].(string)
				category, _ := args["category"].(string)
				if err := o.TakeNote(note, category); err != nil {
					return failure("%v", err), nil
				}
				return encodeResult(toolResult{Success: true, Message: "note recorded"}), nil
			},
		},
		{
			Name:        "end_interview",
			Description: "Finish the interview with an overall score (0-100) and a summary. Call exactly once, at the end.",
			Parameters: map[string]any{
				"summary": map[string]any{"type": "string"},
				"score":   map[string]any{"type": "number"},
			},
			Handler: func(args map[string]any) (string, error) {
				ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
				defer cancel()

				summary, _ := args["summary"].(string)
				scoreF, _ := args["score"].(float64)

				conversation := ""
				if log != nil {
					conversation = log.Render()
				}
				id, err := o.EndInterview(ctx, summary, int(scoreF), conversation)
				if err != nil {
					return failure("%v", err), nil
				}
				return encodeResult(toolResult{
					Success: true,
					Message: fmt.Sprintf("interview saved as %s", id),
				}), nil
			},
		},
	}
}
