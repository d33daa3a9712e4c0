package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InitRoutes builds the full HTTP surface: authenticated medication
// management plus the tokenized reminder action links.
func InitRoutes(medHandler *MedicationHandler, remHandler *ReminderHandler, log *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	reminders := router.Group("/reminders")
	{
		reminders.GET("/complete/:id", remHandler.Complete)
		reminders.GET("/snooze/:id", remHandler.Snooze)
	}

	medications := router.Group("/medications", RequireUser())
	{
		medications.POST("", medHandler.Create)
		medications.GET("", medHandler.List)
		medications.GET("/:id", medHandler.Get)
		medications.PUT("/:id", medHandler.Update)
		medications.DELETE("/:id", medHandler.Delete)
		medications.GET("/:id/report", medHandler.Report)
	}

	return router
}
