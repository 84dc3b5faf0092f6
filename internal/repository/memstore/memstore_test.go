package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	exam := s.AddExam("Placement", 600)
	q := s.AddQuestion(exam.ID, model.SubjectMath, "1+1", []string{"1", "2"}, 1)
	student := s.AddStudent("Ada", "Lovelace")
	sess := &model.ExamSession{ID: uuid.New(), ExamID: exam.ID, StudentID: student.ID, StartedAt: time.Now()}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.CreateActive(ctx, sess)
		require.NoError(t, err)
		require.True(t, created)
		idx := 1
		require.NoError(t, s.Upsert(ctx, &model.Response{SessionID: sess.ID, QuestionID: q.ID, ChosenIndex: &idx}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetByID(ctx, sess.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Zero(t, s.ResponseCount(sess.ID))
}

func TestCreateActiveRejectsSecondStartedSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	student := s.AddStudent("Ada", "Lovelace")

	first := &model.ExamSession{ID: uuid.New(), ExamID: 1, StudentID: student.ID, StartedAt: time.Now()}
	second := &model.ExamSession{ID: uuid.New(), ExamID: 2, StudentID: student.ID, StartedAt: time.Now()}

	ok, err := s.CreateActive(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.CreateActive(ctx, second)
	require.NoError(t, err)
	require.False(t, ok)

	submitted, err := s.MarkSubmitted(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.True(t, submitted)

	ok, err = s.CreateActive(ctx, second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListQuestionsPageOrdersByPosition(t *testing.T) {
	s := New()
	ctx := context.Background()
	exam := s.AddExam("Placement", 600)
	var ids []int64
	for i := 0; i < 7; i++ {
		ids = append(ids, s.AddQuestion(exam.ID, model.SubjectEnglish, "q", []string{"a", "b"}, 0).ID)
	}

	page, err := s.ListQuestionsPage(ctx, exam.ID, 5, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[5], page[0].ID)
	require.Equal(t, ids[6], page[1].ID)

	page, err = s.ListQuestionsPage(ctx, exam.ID, 5, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}
