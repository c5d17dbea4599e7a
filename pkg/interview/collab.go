package interview

import "context"

// JobDirectory fetches job postings from the recruiting backend.
type JobDirectory interface {
	Job(ctx context.Context, id string) (*Job, error)
}

// CandidateDirectory fetches candidate profiles from the recruiting backend.
type CandidateDirectory interface {
	Candidate(ctx context.Context, id string) (*Candidate, error)
}

// AnswerScorer evaluates a single answer against its question.
type AnswerScorer interface {
	ScoreAnswer(ctx context.Context, req ScoreRequest) (*AnswerScore, error)
}

// InterviewStore persists finished interviews and triggers the best-effort
// deep analysis pass.
type InterviewStore interface {
	// SaveInterview persists the record and returns the new interview id.
	SaveInterview(ctx context.Context, rec Record) (string, error)

	// Analyze requests the post-interview analysis. Failures are the
	// caller's to log, never to propagate into interview completion.
	Analyze(ctx context.Context, req AnalysisRequest) error
}
