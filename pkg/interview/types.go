package interview

import "time"

// Job is a job posting with its screening question list.
type Job struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Candidate is the person being interviewed.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Question is one screening question and, once evaluated, its outcome.
type Question struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Asked      bool   `json:"asked"`
	Answer     string `json:"answer,omitempty"`
	Evaluation string `json:"evaluation,omitempty"`
	Score      int    `json:"score,omitempty"`
}

// Note is an interviewer observation recorded during the session.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the domain object tracking one interview, distinct from the
// physical realtime connection.
type Session struct {
	ID             string     `json:"id"`
	CandidateID    string     `json:"candidate_id"`
	JobID          string     `json:"job_id"`
	JobTitle       string     `json:"job_title"`
	JobDescription string     `json:"job_description"`
	CandidateName  string     `json:"candidate_name"`
	Questions      []Question `json:"questions"`
	Notes          []Note     `json:"notes"`
	Active         bool       `json:"is_active"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time,omitempty"`
	OverallScore   int        `json:"overall_score,omitempty"`
	Summary        string     `json:"summary,omitempty"`
}

// Record is the persisted outcome of a finished interview.
type Record struct {
	CandidateID string `json:"candidate_id"`
	JobID       string `json:"job_id"`
	Transcript  string `json:"transcript"`
	Summary     string `json:"summary"`
	Score       int    `json:"score"`
}

// AnalysisRequest asks the scoring backend for a deeper post-interview
// review. It is best-effort and never blocks interview completion.
type AnalysisRequest struct {
	InterviewID    string `json:"interview_id"`
	Transcript     string `json:"transcript"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	CandidateName  string `json:"candidate_name"`
}

// ScoreRequest asks the scoring backend to evaluate one answer.
type ScoreRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	JobID    string `json:"job_id"`
}

// AnswerScore is the scoring backend's verdict on one answer.
type AnswerScore struct {
	Score      int    `json:"score"`
	Evaluation string `json:"evaluation"`
}
