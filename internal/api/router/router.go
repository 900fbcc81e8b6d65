package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/echojournal/reminderd/internal/api/handlers/reminder"
	"github.com/echojournal/reminderd/internal/api/handlers/user"
	"github.com/echojournal/reminderd/internal/middlewares"
)

func New(handler *reminder.Handler, users *user.Handler) *ginext.Engine {
	e := ginext.New("")
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		reminders := api.Group("/reminders")
		{
			reminders.POST("/", handler.Create)
			reminders.GET("/", handler.List)
			reminders.GET("/:id", handler.Get)
			reminders.PUT("/:id", handler.Update)
			reminders.DELETE("/:id", handler.Delete)
			reminders.POST("/:id/trigger", handler.TriggerNow)
			reminders.GET("/:id/status", handler.GetStatus)
		}

		api.PUT("/users/:id/subscription", users.SaveSubscription)
		api.GET("/scheduler/status", handler.Status)
	}

	return e
}
