package service

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository/memstore"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt model.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []model.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SessionEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	events   *recordingPublisher
	sessions *SessionService
	answers  *AnswerService
	submit   *SubmissionService
	scoring  *ScoringService
	expiry   *ExpiryService

	exam    model.Exam
	math    []model.Question
	english []model.Question
	student model.Student
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	events := &recordingPublisher{}
	stores := Stores{
		Tx:        store,
		Catalog:   store,
		Students:  store,
		Sessions:  store,
		Responses: store,
		Events:    events,
	}
	log := zerolog.New(io.Discard)
	scoring := NewScoringService(stores, "/api/v1/reports/", log)

	f := &fixture{
		store:    store,
		events:   events,
		sessions: NewSessionService(stores, scoring, log),
		answers:  NewAnswerService(stores, 5, 20, log),
		submit:   NewSubmissionService(stores, log),
		scoring:  scoring,
		expiry:   NewExpiryService(stores, log),
	}

	f.exam = store.AddExam("Placement Test", 3600)
	opts := []string{"A", "B", "C", "D"}
	f.math = []model.Question{
		store.AddQuestion(f.exam.ID, model.SubjectMath, "2+2?", opts, 1),
		store.AddQuestion(f.exam.ID, model.SubjectMath, "3*3?", opts, 0),
	}
	f.english = []model.Question{
		store.AddQuestion(f.exam.ID, model.SubjectEnglish, "Past tense of go?", opts, 2),
		store.AddQuestion(f.exam.ID, model.SubjectEnglish, "Plural of mouse?", opts, 3),
	}
	f.student = store.AddStudent("Ada", "Lovelace")
	return f
}

func (f *fixture) start(t *testing.T) uuid.UUID {
	t.Helper()
	h, err := f.sessions.StartSession(context.Background(), f.student.ID, f.exam.ID)
	require.NoError(t, err)
	return h.SessionID
}

func answer(qid int64, idx int) model.AnswerInput {
	return model.AnswerInput{QuestionID: qid, SelectedOptionIndex: &idx}
}

func TestStartSessionCreatesThenResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sessions.StartSession(ctx, f.student.ID, f.exam.ID)
	require.NoError(t, err)
	require.Equal(t, f.exam.ID, first.ExamID)
	require.Equal(t, 3600, first.DurationSeconds)
	require.False(t, first.StartTime.IsZero())

	second, err := f.sessions.StartSession(ctx, f.student.ID, f.exam.ID)
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, first.StartTime, second.StartTime)

	require.Equal(t, []model.SessionEventType{model.EventSessionStarted, model.EventSessionResumed}, f.events.types())
}

func TestStartSessionUnknownExamOrStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.StartSession(ctx, f.student.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.sessions.StartSession(ctx, uuid.New(), f.exam.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartSessionConcurrentCallsShareOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 16
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := f.sessions.StartSession(ctx, f.student.ID, f.exam.ID)
			errs[i] = err
			if err == nil {
				ids[i] = h.SessionID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	sessions, err := f.store.ListByStudent(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestStartSessionReturnsActiveSessionOfAnotherExam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.store.AddExam("Other", 120)

	id := f.start(t)
	h, err := f.sessions.StartSession(ctx, f.student.ID, other.ID)
	require.NoError(t, err)
	require.Equal(t, id, h.SessionID)
	require.Equal(t, f.exam.ID, h.ExamID)
	require.Equal(t, 3600, h.DurationSeconds)
}

func TestWorkedExampleScoresPerSubject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{
		answer(f.math[0].ID, 1),    // correct
		answer(f.math[1].ID, 2),    // wrong
		answer(f.english[0].ID, 2), // correct
		answer(f.english[1].ID, 0), // wrong
	}))

	summary, err := f.submit.Submit(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionSummary{AnsweredCount: 4, TotalCount: 4, UnansweredCount: 0}, *summary)

	fin, err := f.scoring.Finish(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "/api/v1/reports/"+id.String(), fin.ReportURL)

	result, err := f.scoring.CalculateResult(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, result.MathCorrect)
	require.Equal(t, 2, result.MathTotal)
	require.Equal(t, 50.0, result.MathPercentage)
	require.Equal(t, 1, result.EnglishCorrect)
	require.Equal(t, 2, result.EnglishTotal)
	require.Equal(t, 50.0, result.EnglishPercentage)
	require.Equal(t, 2, result.TotalCorrect)
	require.Equal(t, 4, result.TotalQuestions)
	require.Equal(t, 50.0, result.TotalPercentage)
	require.Len(t, result.Subjects, 2)
	require.Equal(t, model.SubjectMath, result.Subjects[0].Subject)
}

func TestCalculateResultScoresStoredResponsesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{
		answer(f.math[0].ID, 1), // correct
		{QuestionID: f.english[0].ID},
	}))

	result, err := f.scoring.CalculateResult(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, result.MathCorrect)
	require.Equal(t, 1, result.MathTotal)
	require.Equal(t, 100.0, result.MathPercentage)
	require.Equal(t, 0, result.EnglishCorrect)
	require.Equal(t, 1, result.EnglishTotal)
	require.Equal(t, 0.0, result.EnglishPercentage)
	require.Equal(t, 1, result.TotalCorrect)
	require.Equal(t, 2, result.TotalQuestions)
	require.Equal(t, 50.0, result.TotalPercentage)

	_, err = f.scoring.CalculateResult(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCalculateResultWithoutResponses(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	result, err := f.scoring.CalculateResult(context.Background(), id)
	require.NoError(t, err)
	require.Zero(t, result.TotalQuestions)
	require.Zero(t, result.MathTotal)
	require.Zero(t, result.EnglishTotal)
	require.Zero(t, result.TotalPercentage)
}

func TestScoreWithNoQuestions(t *testing.T) {
	result := Score(uuid.New(), nil, time.Now())
	require.Zero(t, result.TotalQuestions)
	require.Zero(t, result.TotalPercentage)
	require.Len(t, result.Subjects, 2)
	for _, s := range result.Subjects {
		require.Zero(t, s.Percentage)
	}
}

func TestSaveAnswersOverwritesPreviousChoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)
	qid := f.math[0].ID

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(qid, 0)}))
	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(qid, 1)}))

	require.Equal(t, 1, f.store.ResponseCount(id))
	chosen, err := f.store.ChosenFor(ctx, id, []int64{qid})
	require.NoError(t, err)
	require.NotNil(t, chosen[qid])
	require.Equal(t, 1, *chosen[qid])
}

func TestSaveAnswersNilIndexClearsAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)
	qid := f.math[0].ID

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(qid, 1)}))
	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{{QuestionID: qid}}))

	answered, err := f.store.CountAnswered(ctx, id)
	require.NoError(t, err)
	require.Zero(t, answered)

	result, err := f.scoring.CalculateResult(ctx, id)
	require.NoError(t, err)
	require.Zero(t, result.TotalCorrect)
}

func TestSaveAnswersIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	err := f.answers.SaveAnswers(ctx, id, []model.AnswerInput{
		answer(f.math[0].ID, 1),
		answer(f.math[1].ID, 4),
	})
	require.ErrorIs(t, err, ErrBadRequest)
	require.Zero(t, f.store.ResponseCount(id))
}

func TestSaveAnswersRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)
	other := f.store.AddExam("Other", 60)
	foreign := f.store.AddQuestion(other.ID, model.SubjectMath, "x", []string{"a", "b"}, 0)

	tests := []struct {
		name    string
		answers []model.AnswerInput
	}{
		{"empty", nil},
		{"unknown question", []model.AnswerInput{answer(99999, 0)}},
		{"foreign question", []model.AnswerInput{answer(foreign.ID, 0)}},
		{"negative index", []model.AnswerInput{answer(f.math[0].ID, -1)}},
		{"index past options", []model.AnswerInput{answer(f.math[0].ID, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.answers.SaveAnswers(ctx, id, tt.answers)
			require.ErrorIs(t, err, ErrBadRequest)
		})
	}

	err := f.answers.SaveAnswers(ctx, uuid.New(), []model.AnswerInput{answer(f.math[0].ID, 0)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAnswersAfterSubmitConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	_, err := f.submit.Submit(ctx, id)
	require.NoError(t, err)

	err = f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(f.math[0].ID, 1)})
	require.ErrorIs(t, err, ErrConflict)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(f.math[0].ID, 1)}))

	summary, err := f.submit.Submit(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, summary.AnsweredCount)
	require.Equal(t, 3, summary.UnansweredCount)

	_, err = f.submit.Submit(ctx, id)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.submit.Submit(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	sess, err := f.sessions.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusSubmitted, sess.Status)
	require.NotNil(t, sess.SubmittedAt)
}

func TestFinishTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	_, err := f.scoring.Finish(ctx, id)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.submit.Submit(ctx, id)
	require.NoError(t, err)

	first, err := f.scoring.Finish(ctx, id)
	require.NoError(t, err)
	again, err := f.scoring.Finish(ctx, id)
	require.NoError(t, err)
	require.Equal(t, first.ReportURL, again.ReportURL)

	completed := 0
	for _, typ := range f.events.types() {
		if typ == model.EventSessionCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)

	_, err = f.scoring.Finish(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetQuestionsPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)
	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(f.math[1].ID, 3)}))

	page, err := f.answers.GetQuestionsPage(ctx, id, 0, 3)
	require.NoError(t, err)
	require.Len(t, page.Questions, 3)
	require.Equal(t, 2, page.TotalPages)
	require.Equal(t, 4, page.TotalQuestions)
	require.False(t, page.IsLastPage)
	require.Nil(t, page.Questions[0].SelectedOption)
	require.NotNil(t, page.Questions[1].SelectedOption)
	require.Equal(t, 3, *page.Questions[1].SelectedOption)

	page, err = f.answers.GetQuestionsPage(ctx, id, 1, 3)
	require.NoError(t, err)
	require.Len(t, page.Questions, 1)
	require.True(t, page.IsLastPage)

	page, err = f.answers.GetQuestionsPage(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Questions, 4)
	require.Equal(t, 1, page.TotalPages)
	require.True(t, page.IsLastPage)

	page, err = f.answers.GetQuestionsPage(ctx, id, 7, 3)
	require.NoError(t, err)
	require.Empty(t, page.Questions)
	require.True(t, page.IsLastPage)

	require.Equal(t, 3, page.PageSize)

	_, err = f.answers.GetQuestionsPage(ctx, id, -1, 3)
	require.ErrorIs(t, err, ErrInvalidPage)
	require.NotErrorIs(t, err, ErrBadRequest)

	_, err = f.submit.Submit(ctx, id)
	require.NoError(t, err)
	_, err = f.answers.GetQuestionsPage(ctx, id, 0, 3)
	require.ErrorIs(t, err, ErrConflict)
}

func TestGetQuestionsPageCapsSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		f.store.AddQuestion(f.exam.ID, model.SubjectEnglish, "filler", []string{"a", "b"}, 0)
	}
	id := f.start(t)

	page, err := f.answers.GetQuestionsPage(ctx, id, 0, 500)
	require.NoError(t, err)
	require.Len(t, page.Questions, 20)
	require.Equal(t, 2, page.TotalPages)
}

// offsetCheckingCatalog fails the way Postgres does on a negative OFFSET.
type offsetCheckingCatalog struct {
	*memstore.Store
}

func (c offsetCheckingCatalog) ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error) {
	if offset < 0 {
		return nil, errors.New("OFFSET must not be negative")
	}
	return c.Store.ListQuestionsPage(ctx, examID, limit, offset)
}

func TestGetQuestionsPageHugePageIsEmptyLastPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	answers := NewAnswerService(Stores{
		Tx:        f.store,
		Catalog:   offsetCheckingCatalog{f.store},
		Students:  f.store,
		Sessions:  f.store,
		Responses: f.store,
	}, 5, 20, zerolog.New(io.Discard))

	page, err := answers.GetQuestionsPage(ctx, id, math.MaxInt, 20)
	require.NoError(t, err)
	require.Empty(t, page.Questions)
	require.True(t, page.IsLastPage)
	require.Equal(t, 1, page.TotalPages)
	require.Equal(t, math.MaxInt, page.CurrentPage)
}

func TestSweepExpiresOnlyStaleStartedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(status model.SessionStatus, age time.Duration) uuid.UUID {
		st := f.store.AddStudent("S", "T")
		sess := model.ExamSession{
			ID:        uuid.New(),
			ExamID:    f.exam.ID,
			StudentID: st.ID,
			Status:    status,
			StartedAt: now.Add(-age),
		}
		f.store.PutSession(sess)
		return sess.ID
	}
	stale := mk(model.SessionStatusStarted, 25*time.Hour)
	fresh := mk(model.SessionStatusStarted, time.Hour)
	submitted := mk(model.SessionStatusSubmitted, 30*time.Hour)

	n, err := f.expiry.Sweep(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	for id, want := range map[uuid.UUID]model.SessionStatus{
		stale:     model.SessionStatusExpired,
		fresh:     model.SessionStatusStarted,
		submitted: model.SessionStatusSubmitted,
	} {
		sess, err := f.sessions.GetSession(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, sess.Status)
	}

	n, err = f.expiry.Sweep(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.submit.Submit(ctx, stale)
	require.ErrorIs(t, err, ErrConflict)
}

func TestReportRequiresCompletedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t)

	_, err := f.scoring.Report(ctx, id)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.answers.SaveAnswers(ctx, id, []model.AnswerInput{answer(f.english[0].ID, 2)}))
	_, err = f.submit.Submit(ctx, id)
	require.NoError(t, err)
	_, err = f.scoring.Finish(ctx, id)
	require.NoError(t, err)

	report, err := f.scoring.Report(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", report.StudentName)
	require.Equal(t, "Placement Test", report.ExamTitle)
	require.Equal(t, 1, report.Result.EnglishCorrect)

	_, err = f.scoring.Report(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := f.start(t)
	require.NoError(t, f.answers.SaveAnswers(ctx, done, []model.AnswerInput{answer(f.math[0].ID, 1)}))
	_, err := f.submit.Submit(ctx, done)
	require.NoError(t, err)
	_, err = f.scoring.Finish(ctx, done)
	require.NoError(t, err)

	f.sessions.now = func() time.Time { return time.Now().Add(time.Minute) }
	active := f.start(t)

	history, err := f.sessions.History(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.Equal(t, active, history[0].SessionID)
	require.Nil(t, history[0].Score)

	require.Equal(t, done, history[1].SessionID)
	require.Equal(t, "Placement Test", history[1].ExamTitle)
	require.NotNil(t, history[1].Score)
	require.Equal(t, 1, *history[1].Score)
	require.Equal(t, 1, *history[1].TotalQuestions)
	require.Equal(t, "/api/v1/reports/"+done.String(), history[1].ReportURL)

	_, err = f.sessions.History(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListExams(t *testing.T) {
	f := newFixture(t)
	exams, err := f.sessions.ListExams(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.ExamSummary{{ID: f.exam.ID, Title: "Placement Test", DurationSeconds: 3600}}, exams)
}
