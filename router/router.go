package router

import (
	"converse-backend/controller"
	"converse-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/chat", controller.CreateChat)
			protected.GET("/chats", controller.GetChats)
			protected.DELETE("/chat/:id", controller.DeleteChat)
			protected.GET("/chat/:id/messages", controller.GetChatMessages)
			protected.PUT("/chat/title", controller.UpdateChatTitle)
			protected.GET("/chat/:id/usage", controller.GetChatUsage)

			protected.POST("/completion", controller.Chat)
			protected.POST("/completion/regenerate", controller.RegenerateChat)
		}
	}

	return r
}
