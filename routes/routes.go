package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/handlers"
	"studyhub/middleware"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Catalog  *handlers.CatalogHandler
	Quiz     *handlers.QuizHandler
	Chat     *handlers.ChatHandler
	Teaching *handlers.TeachingHandler
}

// SetupRoutes mounts the API. The router must already run the auth
// middleware's Authenticate; groups here only require what they need.
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Public catalog
		api.GET("/quiz-types", h.Catalog.ListQuizTypes)
		api.GET("/class-subjects", h.Catalog.ListClassSubjects)
		api.GET("/topics", h.Catalog.ListTopics)
		api.GET("/subscriptions", h.Teaching.ListSubscriptions)

		protected := api.Group("")
		protected.Use(middleware.RequireAuth())
		{
			protected.GET("/questions/:id", h.Catalog.GetQuestion)

			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", h.Quiz.ListQuizzes)
				quizzes.POST("", h.Quiz.CreateQuiz)
				quizzes.GET("/:id", h.Quiz.GetQuiz)
				quizzes.POST("/:id/upload_answers", h.Quiz.UploadAnswers)
				quizzes.DELETE("/:id", h.Quiz.DeleteQuiz)
			}

			chats := protected.Group("/chats")
			{
				chats.GET("", h.Chat.ListChats)
				chats.POST("", h.Chat.CreateChat)
				chats.GET("/:id", h.Chat.GetChat)
				chats.POST("/:id/messages", h.Chat.PostMessage)
				chats.DELETE("/:id", h.Chat.DeleteChat)
				chats.DELETE("/:id/messages/:messageID", h.Chat.DeleteMessage)
			}
		}

		admin := api.Group("")
		admin.Use(middleware.RequireSuperuser())
		{
			admin.POST("/subjects", h.Catalog.CreateGeneralSubject)
			admin.POST("/classes", h.Catalog.CreateClass)
			admin.POST("/class-subjects", h.Catalog.CreateClassSubject)
			admin.POST("/topics", h.Catalog.CreateTopic)
			admin.POST("/questions", h.Catalog.CreateQuestion)
			admin.DELETE("/catalog/:kind/:id", h.Catalog.Delete)
			admin.PUT("/teachers/:id/subscription", h.Teaching.ChangeSubscription)
		}
	}

	// WebSocket endpoint for chat groups. Browsers pass the token as a
	// query parameter.
	router.GET("/ws/chats/:chatID", h.Chat.Connect)
}
