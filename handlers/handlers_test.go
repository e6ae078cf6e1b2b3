package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"studyhub/handlers"
	"studyhub/middleware"
	"studyhub/models"
	"studyhub/routes"
	"studyhub/services"
	"studyhub/testutil"
)

type api struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithBus(t, nil)
}

func newAPIWithBus(t *testing.T, bus services.Bus) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handlers.UseJSONFieldNames()

	db := testutil.DB(t)
	log := testutil.Logger(t)

	identity := services.NewIdentityService(db, log)
	chats := services.NewChatService(db, log)
	hub := services.NewHub(chats, bus, services.HubConfig{}, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	paging := handlers.Paging{DefaultSize: 15, MaxSize: 100}
	h := routes.Handlers{
		Catalog:  handlers.NewCatalogHandler(services.NewCatalogService(db, log), paging, log),
		Quiz:     handlers.NewQuizHandler(services.NewQuizService(db, services.NewRandomSampler(7), log), identity, paging, log),
		Chat:     handlers.NewChatHandler(chats, hub, nil, paging, log),
		Teaching: handlers.NewTeachingHandler(services.NewTeachingService(db, log), log),
	}

	router := gin.New()
	router.Use(middleware.NewAuthMiddleware(testutil.JWTSecret, identity, log).Authenticate())
	routes.SetupRoutes(router, h)
	return &api{t: t, db: db, router: router}
}

func (a *api) do(method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(a.t, userID))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestQuizFlow(t *testing.T) {
	a := newAPI(t)
	student := testutil.SeedStudent(t, a.db)
	class := testutil.SeedClass(t, a.db)
	cs := testutil.SeedClassSubject(t, a.db, class.ID)
	topic := testutil.SeedTopic(t, a.db, cs.ID)
	questions := testutil.SeedQuestions(t, a.db, topic.ID, 5)
	correct := make(map[uint]uint, len(questions))
	for _, q := range questions {
		correct[q.ID] = q.Answers[0].ID
	}

	rec := a.do(http.MethodPost, "/api/quizzes", student.UserID, gin.H{
		"name": "warm up", "quiz_type": models.QuizTypeTopic, "topic_id": topic.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quiz := decode[services.QuizDetail](t, rec)
	require.Len(t, quiz.AttachedQuestions, 5)
	assert.False(t, quiz.Completed)
	for _, q := range quiz.AttachedQuestions {
		for _, ans := range q.Answers {
			assert.Nil(t, ans.IsCorrect)
		}
	}

	items := make([]gin.H, 0, len(quiz.AttachedQuestions))
	for _, q := range quiz.AttachedQuestions {
		items = append(items, gin.H{"quiz": quiz.ID, "question": q.ID, "user_answer": correct[q.ID]})
	}
	path := fmt.Sprintf("/api/quizzes/%d/upload_answers", quiz.ID)
	rec = a.do(http.MethodPost, path, student.UserID, gin.H{"questions": items})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[services.SubmitResult](t, rec)
	assert.Equal(t, 5, result.CorrectQuestions)

	rec = a.do(http.MethodPost, path, student.UserID, gin.H{"questions": items})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quiz.ID), student.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[services.QuizDetail](t, rec)
	assert.True(t, detail.Completed)
	assert.Equal(t, 5, detail.CorrectQuestions)

	other := testutil.SeedStudent(t, a.db)
	rec = a.do(http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quiz.ID), other.UserID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestCreateQuizErrors(t *testing.T) {
	a := newAPI(t)
	student := testutil.SeedStudent(t, a.db)
	teacher := testutil.SeedTeacher(t, a.db)
	class := testutil.SeedClass(t, a.db)
	cs := testutil.SeedClassSubject(t, a.db, class.ID)
	emptyTopic := testutil.SeedTopic(t, a.db, cs.ID)

	tests := []struct {
		name   string
		userID uint
		body   interface{}
		want   int
	}{
		{name: "anonymous", body: gin.H{"name": "q", "quiz_type": 2, "topic_id": emptyTopic.ID}, want: http.StatusUnauthorized},
		{name: "teacher only", userID: teacher.UserID, body: gin.H{"name": "q", "quiz_type": 2, "topic_id": emptyTopic.ID}, want: http.StatusForbidden},
		{name: "missing name", userID: student.UserID, body: gin.H{"quiz_type": 2, "topic_id": emptyTopic.ID}, want: http.StatusBadRequest},
		{name: "missing scope", userID: student.UserID, body: gin.H{"name": "q", "quiz_type": 2}, want: http.StatusBadRequest},
		{name: "unknown topic", userID: student.UserID, body: gin.H{"name": "q", "quiz_type": 2, "topic_id": 9999}, want: http.StatusNotFound},
		{name: "empty pool", userID: student.UserID, body: gin.H{"name": "q", "quiz_type": 2, "topic_id": emptyTopic.ID}, want: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/quizzes", tt.userID, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	var quizzes int64
	require.NoError(t, a.db.Model(&models.Quiz{}).Count(&quizzes).Error)
	assert.Zero(t, quizzes)
}

func TestValidationErrorNamesJSONField(t *testing.T) {
	a := newAPI(t)
	student := testutil.SeedStudent(t, a.db)

	rec := a.do(http.MethodPost, "/api/quizzes", student.UserID, gin.H{"quiz_type": 2, "topic_id": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}](t, rec)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "name", body.Fields[0].Field)
}

func TestTopicsPagination(t *testing.T) {
	a := newAPI(t)
	class := testutil.SeedClass(t, a.db)
	cs := testutil.SeedClassSubject(t, a.db, class.ID)
	for i := 0; i < 3; i++ {
		testutil.SeedTopic(t, a.db, cs.ID)
	}

	type page struct {
		Pagination struct {
			Next     *string `json:"next"`
			Previous *string `json:"previous"`
			Count    int     `json:"count"`
		} `json:"pagination"`
		Data []models.Topic `json:"data"`
	}

	rec := a.do(http.MethodGet, fmt.Sprintf("/api/topics?class_subject_id=%d&page_size=2", cs.ID), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[page](t, rec)
	assert.Equal(t, 2, first.Pagination.Count)
	assert.Len(t, first.Data, 2)
	require.NotNil(t, first.Pagination.Next)
	assert.Contains(t, *first.Pagination.Next, "page=2")
	assert.Nil(t, first.Pagination.Previous)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/topics?class_subject_id=%d&page_size=2&page=2", cs.ID), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[page](t, rec)
	assert.Len(t, second.Data, 1)
	assert.Nil(t, second.Pagination.Next)
	assert.NotNil(t, second.Pagination.Previous)

	rec = a.do(http.MethodGet, "/api/topics?page=0", 0, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogDelete(t *testing.T) {
	a := newAPI(t)
	admin := testutil.SeedUser(t, a.db, true)
	user := testutil.SeedUser(t, a.db, false)
	class := testutil.SeedClass(t, a.db)
	cs := testutil.SeedClassSubject(t, a.db, class.ID)
	topic := testutil.SeedTopic(t, a.db, cs.ID)
	path := fmt.Sprintf("/api/catalog/topics/%d", topic.ID)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodDelete, path, 0, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, path, user.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, admin.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, path, admin.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodDelete, "/api/catalog/users/1", admin.ID, nil).Code)

	var live int64
	require.NoError(t, a.db.Model(&models.Topic{}).Where("id = ?", topic.ID).Count(&live).Error)
	assert.Zero(t, live)
}

func TestQuizTypesDeletedOnly(t *testing.T) {
	a := newAPI(t)
	admin := testutil.SeedUser(t, a.db, true)
	user := testutil.SeedUser(t, a.db, false)

	rec := a.do(http.MethodGet, "/api/quiz-types", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.QuizType](t, rec), 3)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/quiz-types?is_deleted=true", user.ID, nil).Code)

	rec = a.do(http.MethodGet, "/api/quiz-types?is_deleted=true", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.QuizType](t, rec))
}

func TestCreateQuestionAsSuperuser(t *testing.T) {
	a := newAPI(t)
	admin := testutil.SeedUser(t, a.db, true)
	class := testutil.SeedClass(t, a.db)
	cs := testutil.SeedClassSubject(t, a.db, class.ID)
	topic := testutil.SeedTopic(t, a.db, cs.ID)

	rec := a.do(http.MethodPost, "/api/questions", admin.ID, gin.H{
		"name":     "2 + 2",
		"topic_id": topic.ID,
		"answers":  []gin.H{{"name": "4", "is_correct": true}, {"name": "5"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Question](t, rec)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/questions/%d", created.ID), admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.Question](t, rec).Answers, 2)

	rec = a.do(http.MethodPost, "/api/questions", admin.ID, gin.H{
		"name":     "no correct",
		"topic_id": topic.ID,
		"answers":  []gin.H{{"name": "a"}, {"name": "b"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpoints(t *testing.T) {
	a := newAPI(t)
	student := testutil.SeedStudent(t, a.db)
	teacher := testutil.SeedTeacher(t, a.db)
	outsider := testutil.SeedUser(t, a.db, false)

	rec := a.do(http.MethodPost, "/api/chats", student.UserID, gin.H{"student": student.ID, "teacher": teacher.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chat := decode[models.PersonalChat](t, rec)

	rec = a.do(http.MethodPost, "/api/chats", student.UserID, gin.H{"student": student.ID, "teacher": teacher.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	msgPath := fmt.Sprintf("/api/chats/%d/messages", chat.ID)
	rec = a.do(http.MethodPost, msgPath, teacher.UserID, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[services.ChatEvent](t, rec)
	assert.Equal(t, chat.ID, ev.ChatID)
	assert.True(t, ev.Accepted)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, msgPath, outsider.ID, gin.H{"content": "hi"}).Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/chats/%d?size=10", chat.ID), student.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		ID       uint `json:"id"`
		Messages struct {
			Data []models.Message `json:"data"`
		} `json:"messages"`
	}](t, rec)
	assert.Equal(t, chat.ID, detail.ID)
	require.Len(t, detail.Messages.Data, 1)
	assert.Equal(t, "hello", detail.Messages.Data[0].Content)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, fmt.Sprintf("/api/chats/%d", chat.ID), outsider.ID, nil).Code)

	delPath := fmt.Sprintf("/api/chats/%d/messages/%d", chat.ID, ev.MessageID)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, delPath, student.UserID, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, delPath, teacher.UserID, nil).Code)
}

func TestConnectUnknownChatIsRejectedBeforeUpgrade(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/ws/chats/4242", 0, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeSubscription(t *testing.T) {
	a := newAPI(t)
	admin := testutil.SeedUser(t, a.db, true)
	teacher := testutil.SeedTeacher(t, a.db)
	sub := models.Subscription{Name: "pro"}
	require.NoError(t, a.db.Create(&sub).Error)
	path := fmt.Sprintf("/api/teachers/%d/subscription", teacher.ID)

	rec := a.do(http.MethodPut, path, admin.ID, gin.H{"previous": nil, "next": sub.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[services.SubscriptionOutcome](t, rec)
	assert.True(t, outcome.Changed)

	rec = a.do(http.MethodPut, path, admin.ID, gin.H{"previous": nil, "next": sub.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/api/subscriptions", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Subscription](t, rec), 1)
}

type downBus struct{}

func (downBus) Publish(context.Context, services.ChatEvent) error { return errors.New("down") }
func (downBus) StartForwarder(context.Context, func(services.ChatEvent)) error { return nil }
func (downBus) Close() error { return nil }

func TestPostMessageStoredButUndeliveredIsAccepted(t *testing.T) {
	a := newAPIWithBus(t, downBus{})
	student := testutil.SeedStudent(t, a.db)
	chat := testutil.SeedChat(t, a.db, student, testutil.SeedTeacher(t, a.db))

	rec := a.do(http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chat.ID), student.UserID, gin.H{"content": "hi"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	ev := decode[services.ChatEvent](t, rec)
	assert.NotZero(t, ev.MessageID)

	var stored int64
	require.NoError(t, a.db.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&stored).Error)
	assert.EqualValues(t, 1, stored)
}
