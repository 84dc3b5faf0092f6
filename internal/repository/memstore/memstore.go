// Package memstore is an in-memory implementation of the catalog, student, session
// and response stores. Transactions serialise on a single lock and roll back by
// restoring a snapshot, so callers observe the same atomicity as the Postgres stores.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

type responseKey struct {
	sessionID  uuid.UUID
	questionID int64
}

type state struct {
	exams     map[int64]model.Exam
	questions map[int64]model.Question
	students  map[uuid.UUID]model.Student
	sessions  map[uuid.UUID]model.ExamSession
	responses map[responseKey]model.Response
	nextID    int64
}

func (s *state) clone() state {
	return state{
		exams:     maps.Clone(s.exams),
		questions: maps.Clone(s.questions),
		students:  maps.Clone(s.students),
		sessions:  maps.Clone(s.sessions),
		responses: maps.Clone(s.responses),
		nextID:    s.nextID,
	}
}

type txKey struct{}

// Store holds every table in memory.
type Store struct {
	mu sync.Mutex
	st state
}

// New creates an empty Store.
func New() *Store {
	return &Store{st: state{
		exams:     make(map[int64]model.Exam),
		questions: make(map[int64]model.Question),
		students:  make(map[uuid.UUID]model.Student),
		sessions:  make(map[uuid.UUID]model.ExamSession),
		responses: make(map[responseKey]model.Response),
	}}
}

// WithinTx runs fn holding the store lock. Any error restores the state fn started from.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock acquires the store lock unless ctx already runs inside WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// ─── Seeding ────────────────────────────────────────────────────────

// AddExam inserts an exam and returns it with its ID.
func (s *Store) AddExam(title string, timeLimitSeconds int) model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := model.Exam{ID: s.id(), Title: title, TimeLimitSeconds: timeLimitSeconds, CreatedAt: time.Now().UTC()}
	s.st.exams[e.ID] = e
	return e
}

// AddQuestion appends a question to an exam.
func (s *Store) AddQuestion(examID int64, subject model.Subject, content string, options []string, correctIndex int) model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	position := 1
	for _, q := range s.st.questions {
		if q.ExamID == examID {
			position++
		}
	}
	q := model.Question{
		ID:           s.id(),
		ExamID:       examID,
		Position:     position,
		Subject:      subject,
		Content:      content,
		Options:      slices.Clone(options),
		CorrectIndex: correctIndex,
	}
	s.st.questions[q.ID] = q
	return q
}

// AddStudent inserts a student.
func (s *Store) AddStudent(firstName, lastName string) model.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.Student{ID: uuid.New(), FirstName: firstName, LastName: lastName, CreatedAt: time.Now().UTC()}
	s.st.students[st.ID] = st
	return st
}

// PutSession stores a session as-is, bypassing lifecycle checks.
func (s *Store) PutSession(sess model.ExamSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sessions[sess.ID] = sess
}

// ─── Catalog ────────────────────────────────────────────────────────

func (s *Store) GetExam(ctx context.Context, examID int64) (*model.Exam, error) {
	defer s.lock(ctx)()
	e, ok := s.st.exams[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	defer s.lock(ctx)()
	exams := slices.Collect(maps.Values(s.st.exams))
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams, nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (*model.Question, error) {
	defer s.lock(ctx)()
	q, ok := s.st.questions[questionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s *Store) ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error) {
	defer s.lock(ctx)()
	all := s.examQuestions(examID)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *Store) CountQuestions(ctx context.Context, examID int64) (int, error) {
	defer s.lock(ctx)()
	return len(s.examQuestions(examID)), nil
}

func (s *Store) examQuestions(examID int64) []model.Question {
	var qs []model.Question
	for _, q := range s.st.questions {
		if q.ExamID == examID {
			qs = append(qs, q)
		}
	}
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].Position != qs[j].Position {
			return qs[i].Position < qs[j].Position
		}
		return qs[i].ID < qs[j].ID
	})
	return qs
}

// ─── Students ───────────────────────────────────────────────────────

func (s *Store) GetStudent(ctx context.Context, studentID uuid.UUID) (*model.Student, error) {
	defer s.lock(ctx)()
	st, ok := s.st.students[studentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

// ─── Sessions ───────────────────────────────────────────────────────

// CreateActive mirrors the partial unique index on STARTED sessions per student.
func (s *Store) CreateActive(ctx context.Context, sess *model.ExamSession) (bool, error) {
	defer s.lock(ctx)()
	for _, existing := range s.st.sessions {
		if existing.StudentID == sess.StudentID && existing.Status == model.SessionStatusStarted {
			return false, nil
		}
	}
	sess.Status = model.SessionStatusStarted
	s.st.sessions[sess.ID] = *sess
	return true, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	defer s.lock(ctx)()
	sess, ok := s.st.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

// LockByID is GetByID; the transaction lock already excludes other writers.
func (s *Store) LockByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) GetActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	defer s.lock(ctx)()
	for _, sess := range s.st.sessions {
		if sess.StudentID == studentID && sess.Status == model.SessionStatusStarted {
			return &sess, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) MarkSubmitted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	sess, ok := s.st.sessions[id]
	if !ok || !sess.Status.CanTransitionTo(model.SessionStatusSubmitted) {
		return false, nil
	}
	sess.Status = model.SessionStatusSubmitted
	sess.SubmittedAt = &at
	s.st.sessions[id] = sess
	return true, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	sess, ok := s.st.sessions[id]
	if !ok || !sess.Status.CanTransitionTo(model.SessionStatusCompleted) {
		return false, nil
	}
	sess.Status = model.SessionStatusCompleted
	sess.CompletedAt = &at
	s.st.sessions[id] = sess
	return true, nil
}

func (s *Store) ExpireStartedBefore(ctx context.Context, cutoff time.Time) ([]model.ExamSession, error) {
	defer s.lock(ctx)()
	var expired []model.ExamSession
	for id, sess := range s.st.sessions {
		if sess.Status.CanTransitionTo(model.SessionStatusExpired) && sess.StartedAt.Before(cutoff) {
			sess.Status = model.SessionStatusExpired
			s.st.sessions[id] = sess
			expired = append(expired, sess)
		}
	}
	return expired, nil
}

func (s *Store) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.ExamSession, error) {
	defer s.lock(ctx)()
	var sessions []model.ExamSession
	for _, sess := range s.st.sessions {
		if sess.StudentID == studentID {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartedAt.After(sessions[j].StartedAt) })
	return sessions, nil
}

// ─── Responses ──────────────────────────────────────────────────────

func (s *Store) Upsert(ctx context.Context, r *model.Response) error {
	defer s.lock(ctx)()
	key := responseKey{sessionID: r.SessionID, questionID: r.QuestionID}
	if existing, ok := s.st.responses[key]; ok {
		r.ID = existing.ID
	} else {
		r.ID = s.id()
	}
	stored := *r
	if r.ChosenIndex != nil {
		idx := *r.ChosenIndex
		stored.ChosenIndex = &idx
	}
	s.st.responses[key] = stored
	return nil
}

func (s *Store) ChosenFor(ctx context.Context, sessionID uuid.UUID, questionIDs []int64) (map[int64]*int, error) {
	defer s.lock(ctx)()
	chosen := make(map[int64]*int, len(questionIDs))
	for _, qid := range questionIDs {
		if r, ok := s.st.responses[responseKey{sessionID: sessionID, questionID: qid}]; ok {
			chosen[qid] = r.ChosenIndex
		}
	}
	return chosen, nil
}

func (s *Store) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for key, r := range s.st.responses {
		if key.sessionID == sessionID && r.ChosenIndex != nil {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListScoredItems(ctx context.Context, sessionID uuid.UUID) ([]model.ScoredItem, error) {
	defer s.lock(ctx)()
	sess, ok := s.st.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	var items []model.ScoredItem
	for _, q := range s.examQuestions(sess.ExamID) {
		r, ok := s.st.responses[responseKey{sessionID: sessionID, questionID: q.ID}]
		if !ok {
			continue
		}
		items = append(items, model.ScoredItem{
			QuestionID:   q.ID,
			Subject:      q.Subject,
			CorrectIndex: q.CorrectIndex,
			ChosenIndex:  r.ChosenIndex,
		})
	}
	return items, nil
}

// ResponseCount returns how many response rows a session has, answered or cleared.
func (s *Store) ResponseCount(sessionID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.st.responses {
		if key.sessionID == sessionID {
			n++
		}
	}
	return n
}
