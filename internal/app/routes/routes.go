package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentrecords/internal/app/controllers"
	"github.com/yigit/studentrecords/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	studentController *controllers.StudentController,
	authMiddleware *middleware.AuthMiddleware,
) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	v1 := router.Group("/api/v1")

	// Public read routes
	students := v1.Group("/students")
	{
		students.GET("", studentController.ListStudents)
		students.GET("/stats", studentController.GetStudentStats)
		students.GET("/:id", studentController.GetStudent)
	}

	// Mutations require a valid access token
	studentsProtected := v1.Group("/students")
	studentsProtected.Use(authMiddleware.JWTAuth())
	{
		studentsProtected.POST("", studentController.CreateStudent)
		studentsProtected.PATCH("/:id", studentController.UpdateStudent)
		studentsProtected.DELETE("/:id", studentController.DeleteStudent)
	}
}
