package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizTypeSampleSizes(t *testing.T) {
	assert.Equal(t, 20, QuizTypeSubject.SampleSize())
	assert.Equal(t, 5, QuizTypeTopic.SampleSize())
	assert.Equal(t, 10, QuizTypeClass.SampleSize())
	assert.Equal(t, 0, QuizTypeKind(9).SampleSize())
	assert.False(t, QuizTypeKind(0).Valid())
	assert.Equal(t, QuizTypeClass, QuizType{ID: 3}.Kind())
}

func TestChatHasMember(t *testing.T) {
	chat := PersonalChat{Student: Student{UserID: 4}, Teacher: Teacher{UserID: 9}}
	assert.True(t, chat.HasMember(4))
	assert.True(t, chat.HasMember(9))
	assert.False(t, chat.HasMember(5))
}
