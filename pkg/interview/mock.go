package interview

import (
	"context"
	"sync"
)

// MockBackend is an in-memory implementation of all collaborator
// interfaces for tests and offline development.
type MockBackend struct {
	mu sync.Mutex

	// Seeded data
	Jobs       map[string]*Job
	Candidates map[string]*Candidate

	// Configurable behavior
	JobFunc           func(ctx context.Context, id string) (*Job, error)
	CandidateFunc     func(ctx context.Context, id string) (*Candidate, error)
	ScoreAnswerFunc   func(ctx context.Context, req ScoreRequest) (*AnswerScore, error)
	SaveInterviewFunc func(ctx context.Context, rec Record) (string, error)
	AnalyzeFunc       func(ctx context.Context, req AnalysisRequest) error

	// Captured calls for assertions
	Saved    []Record
	Analyzed []AnalysisRequest
	Scored   []ScoreRequest
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Jobs:       make(map[string]*Job),
		Candidates: make(map[string]*Candidate),
	}
}

// Job implements JobDirectory.
func (m *MockBackend) Job(ctx context.Context, id string) (*Job, error) {
	if m.JobFunc != nil {
		return m.JobFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		return job, nil
	}
	return nil, &NotFoundError{Kind: "job", ID: id}
}

// Candidate implements CandidateDirectory.
func (m *MockBackend) Candidate(ctx context.Context, id string) (*Candidate, error) {
	if m.CandidateFunc != nil {
		return m.CandidateFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cand, ok := m.Candidates[id]; ok {
		return cand, nil
	}
	return nil, &NotFoundError{Kind: "candidate", ID: id}
}

// ScoreAnswer implements AnswerScorer.
func (m *MockBackend) ScoreAnswer(ctx context.Context, req ScoreRequest) (*AnswerScore, error) {
	m.mu.Lock()
	m.Scored = append(m.Scored, req)
	m.mu.Unlock()
	if m.ScoreAnswerFunc != nil {
		return m.ScoreAnswerFunc(ctx, req)
	}
	return &AnswerScore{Score: 75, Evaluation: "solid answer"}, nil
}

// SaveInterview implements InterviewStore.
func (m *MockBackend) SaveInterview(ctx context.Context, rec Record) (string, error) {
	if m.SaveInterviewFunc != nil {
		return m.SaveInterviewFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, rec)
	return "interview-1", nil
}

// Analyze implements InterviewStore.
func (m *MockBackend) Analyze(ctx context.Context, req AnalysisRequest) error {
	m.mu.Lock()
	m.Analyzed = append(m.Analyzed, req)
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	return nil
}

// SavedRecords returns a copy of the persisted records.
func (m *MockBackend) SavedRecords() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.Saved))
	copy(out, m.Saved)
	return out
}

// AnalyzedRequests returns a copy of the analysis requests.
func (m *MockBackend) AnalyzedRequests() []AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnalysisRequest, len(m.Analyzed))
	copy(out, m.Analyzed)
	return out
}

var (
	_ JobDirectory       = (*MockBackend)(nil)
	_ CandidateDirectory = (*MockBackend)(nil)
	_ AnswerScorer       = (*MockBackend)(nil)
	_ InterviewStore     = (*MockBackend)(nil)
)

// NotFoundError reports a missing backend entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}
