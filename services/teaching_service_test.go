package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/apperrors"
	"studyhub/models"
	"studyhub/testutil"
)

func TestChangeSubscription(t *testing.T) {
	db := testutil.DB(t)
	svc := NewTeachingService(db, testutil.Logger(t))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	teacher := testutil.SeedTeacher(t, db)
	basic := models.Subscription{Name: "Basic", Duration: 3}
	pro := models.Subscription{Name: "Pro", Duration: 12}
	require.NoError(t, db.Create(&basic).Error)
	require.NoError(t, db.Create(&pro).Error)

	out, err := svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: teacher.ID, Next: &basic.ID})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	require.NotNil(t, out.Teacher.SubscriptionStatusID)
	assert.Equal(t, models.SubscriptionStatusActive, *out.Teacher.SubscriptionStatusID)
	require.NotNil(t, out.Teacher.SubscribedAt)
	assert.True(t, fixed.Equal(*out.Teacher.SubscribedAt))
	assert.Equal(t, "Basic", out.Teacher.Subscription.Name)

	_, err = svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: teacher.ID, Previous: nil, Next: &pro.ID})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	out, err = svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: teacher.ID, Previous: &basic.ID, Next: &basic.ID})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	missing := uint(9999)
	_, err = svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: teacher.ID, Previous: &basic.ID, Next: &missing})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	out, err = svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: teacher.ID, Previous: &basic.ID})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Nil(t, out.Teacher.SubscriptionID)
	assert.Nil(t, out.Teacher.SubscriptionStatusID)
	assert.Nil(t, out.Teacher.SubscribedAt)

	_, err = svc.ChangeSubscription(ctx, SubscriptionChange{TeacherID: 9999})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	subs, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
