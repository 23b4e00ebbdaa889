package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/studentrecords/internal/app/auth"
	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/app/models/dto"
	"github.com/yigit/studentrecords/internal/app/repositories"
	"github.com/yigit/studentrecords/internal/app/services"
	"github.com/yigit/studentrecords/internal/middleware"
	"github.com/yigit/studentrecords/internal/pkg/helpers"
)

// StudentController handles student record endpoints
type StudentController struct {
	studentService services.StudentService
	authService    *appAuth.AuthorizationService
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, authService *appAuth.AuthorizationService) *StudentController {
	return &StudentController{
		studentService: studentService,
		authService:    authService,
	}
}

// CreateStudent handles POST /students. Admin only.
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	if err := c.authService.ValidateAdmin(ctx.GetString(middleware.ContextRole)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.CreateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := req.ToModel()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	created, err := c.studentService.CreateStudent(ctx.Request.Context(), student)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(created))
}

// GetStudent handles GET /students/:id
func (c *StudentController) GetStudent(ctx *gin.Context) {
	student, err := c.studentService.GetStudent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student))
}

// ListStudents handles GET /students with page, size, email, gender, bloodGroup and searchTerm query parameters
func (c *StudentController) ListStudents(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	filter := repositories.StudentFilter{
		Email:      ctx.Query("email"),
		Gender:     models.Gender(ctx.Query("gender")),
		BloodGroup: models.BloodGroup(ctx.Query("bloodGroup")),
		SearchTerm: ctx.Query("searchTerm"),
	}

	students, pagination, err := c.studentService.ListStudents(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      students,
		Pagination: pagination,
	}))
}

// GetStudentStats handles GET /students/stats; groupBy defaults to gender
func (c *StudentController) GetStudentStats(ctx *gin.Context) {
	groupBy := models.GroupField(ctx.DefaultQuery("groupBy", string(models.GroupByGender)))

	groups, err := c.studentService.AggregateStudents(ctx.Request.Context(), groupBy)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.StudentStatsResponse{
		GroupBy: groupBy,
		Groups:  groups,
	}))
}

// UpdateStudent handles PATCH /students/:id. Admins may patch any record,
// students only their own and never the administrative fields.
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	studentID := ctx.Param("id")
	err := c.authService.ValidateStudentOwnership(ctx.Request.Context(), studentID,
		ctx.GetString(middleware.ContextUserID), ctx.GetString(middleware.ContextRole))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.authService.ValidateStudentPatch(ctx.GetString(middleware.ContextRole), patch); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), studentID, patch)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student))
}

// DeleteStudent handles DELETE /students/:id as a soft delete. Admin only.
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	if err := c.authService.ValidateAdmin(ctx.GetString(middleware.ContextRole)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.studentService.DeleteStudent(ctx.Request.Context(), ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
