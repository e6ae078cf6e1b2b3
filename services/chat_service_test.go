package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/apperrors"
	"studyhub/models"
	"studyhub/testutil"
)

func TestCreateChat(t *testing.T) {
	db := testutil.DB(t)
	svc := NewChatService(db, testutil.Logger(t))
	ctx := context.Background()
	student := testutil.SeedStudent(t, db)
	teacher := testutil.SeedTeacher(t, db)
	admin := testutil.SeedUser(t, db, true)

	chat, err := svc.CreateChat(ctx, student.User.Principal(), &CreateChatRequest{StudentID: student.ID, TeacherID: teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, student.ID, chat.StudentID)

	_, err = svc.CreateChat(ctx, admin.Principal(), &CreateChatRequest{StudentID: student.ID, TeacherID: teacher.ID})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// The pair stays taken after a soft delete.
	require.NoError(t, svc.DeleteChat(ctx, student.User.Principal(), chat.ID))
	_, err = svc.CreateChat(ctx, admin.Principal(), &CreateChatRequest{StudentID: student.ID, TeacherID: teacher.ID})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateChat)

	self := testutil.SeedTeacherFor(t, db, &student.User)
	_, err = svc.CreateChat(ctx, admin.Principal(), &CreateChatRequest{StudentID: student.ID, TeacherID: self.ID})
	assert.ErrorIs(t, err, apperrors.ErrSelfChat)

	outsider := testutil.SeedUser(t, db, false)
	other := testutil.SeedTeacher(t, db)
	_, err = svc.CreateChat(ctx, outsider.Principal(), &CreateChatRequest{StudentID: student.ID, TeacherID: other.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.CreateChat(ctx, admin.Principal(), &CreateChatRequest{StudentID: 9999, TeacherID: other.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostAndListMessages(t *testing.T) {
	db := testutil.DB(t)
	svc := NewChatService(db, testutil.Logger(t))
	ctx := context.Background()
	student := testutil.SeedStudent(t, db)
	teacher := testutil.SeedTeacher(t, db)
	chat := testutil.SeedChat(t, db, student, teacher)
	admin := testutil.SeedUser(t, db, true)
	outsider := testutil.SeedUser(t, db, false)

	first, err := svc.PostMessage(ctx, chat.ID, student.UserID, "hello")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, chat.ID, teacher.UserID, "hi there")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, chat.ID, admin.ID, "moderator here")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, chat.ID, outsider.ID, "let me in")
	assert.ErrorIs(t, err, apperrors.ErrNotChatMember)
	_, err = svc.PostMessage(ctx, chat.ID, student.UserID, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.PostMessage(ctx, 9999, student.UserID, "lost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	page, err := svc.ListMessages(ctx, teacher.User.Principal(), chat.ID, Page{Number: 1, Size: 15})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "moderator here", page.Items[0].Content)
	assert.Equal(t, "hello", page.Items[2].Content)

	_, err = svc.ListMessages(ctx, outsider.Principal(), chat.ID, Page{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.ErrorIs(t, svc.DeleteMessage(ctx, teacher.User.Principal(), chat.ID, first.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.DeleteMessage(ctx, student.User.Principal(), chat.ID, first.ID))
	page, err = svc.ListMessages(ctx, student.User.Principal(), chat.ID, Page{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestListChats(t *testing.T) {
	db := testutil.DB(t)
	svc := NewChatService(db, testutil.Logger(t))
	ctx := context.Background()
	student := testutil.SeedStudent(t, db)
	teacherA := testutil.SeedTeacher(t, db)
	teacherB := testutil.SeedTeacher(t, db)
	admin := testutil.SeedUser(t, db, true)

	chatA := testutil.SeedChat(t, db, student, teacherA)
	testutil.SeedChat(t, db, student, teacherB)
	testutil.SeedChat(t, db, testutil.SeedStudent(t, db), teacherB)

	mine, err := svc.ListChats(ctx, student.User.Principal(), false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	theirs, err := svc.ListChats(ctx, teacherA.User.Principal(), false, Page{})
	require.NoError(t, err)
	require.Len(t, theirs.Items, 1)
	assert.Equal(t, chatA.ID, theirs.Items[0].ID)

	all, err := svc.ListChats(ctx, admin.Principal(), false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	_, err = svc.ListChats(ctx, student.User.Principal(), true, Page{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.DeleteChat(ctx, teacherA.User.Principal(), chatA.ID))
	deleted, err := svc.ListChats(ctx, admin.Principal(), true, Page{})
	require.NoError(t, err)
	require.Len(t, deleted.Items, 1)
	assert.Equal(t, chatA.ID, deleted.Items[0].ID)

	_, err = svc.GetChat(ctx, student.User.Principal(), chatA.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	ok, err := svc.ChatExists(ctx, chatA.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	mine, err = svc.ListChats(ctx, student.User.Principal(), false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
	assert.IsType(t, models.PersonalChat{}, mine.Items[0])
}
