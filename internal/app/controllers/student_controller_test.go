package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appAuth "github.com/yigit/studentrecords/internal/app/auth"
	"github.com/yigit/studentrecords/internal/app/controllers"
	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/app/models/dto"
	"github.com/yigit/studentrecords/internal/app/repositories"
	"github.com/yigit/studentrecords/internal/app/routes"
	"github.com/yigit/studentrecords/internal/middleware"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"github.com/yigit/studentrecords/internal/pkg/auth"
	"github.com/yigit/studentrecords/internal/pkg/validation"
)

// stubStudentService records the last call and returns canned results
type stubStudentService struct {
	student *models.Student
	list    []*models.Student
	groups  []models.GroupCount
	err     error

	lastID      string
	lastFilter  repositories.StudentFilter
	lastPage    int
	lastSize    int
	lastGroupBy models.GroupField
	lastPatch   *models.StudentPatch
}

func (s *stubStudentService) CreateStudent(_ context.Context, student *models.Student) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	validation.Normalize(student)
	if err := validation.ValidateStudent(student); err != nil {
		return nil, err
	}
	student.RecordID = "65f1c2a3b4d5e6f708192a3b"
	return student, nil
}

func (s *stubStudentService) GetStudent(_ context.Context, id string) (*models.Student, error) {
	s.lastID = id
	return s.student, s.err
}

func (s *stubStudentService) ListStudents(_ context.Context, filter repositories.StudentFilter, page, size int) ([]*models.Student, dto.PaginationInfo, error) {
	s.lastFilter, s.lastPage, s.lastSize = filter, page, size
	return s.list, dto.PaginationInfo{CurrentPage: page, PageSize: size, TotalPages: 1, TotalItems: int64(len(s.list))}, s.err
}

func (s *stubStudentService) AggregateStudents(_ context.Context, groupBy models.GroupField) ([]models.GroupCount, error) {
	s.lastGroupBy = groupBy
	return s.groups, s.err
}

func (s *stubStudentService) UpdateStudent(_ context.Context, id string, patch *models.StudentPatch) (*models.Student, error) {
	s.lastID, s.lastPatch = id, patch
	if s.err != nil {
		return nil, s.err
	}
	patch.Apply(s.student)
	return s.student, nil
}

func (s *stubStudentService) DeleteStudent(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

func (s *stubStudentService) IsUserExists(_ context.Context, _ string) (*models.Student, error) {
	return s.student, s.err
}

var jwtService = auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "studentrecords"})

func newRouter(svc *stubStudentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes.SetupRouter(router, controllers.NewStudentController(svc, appAuth.NewAuthorizationService(svc)), middleware.NewAuthMiddleware(jwtService))
	return router
}

func bearer(t *testing.T) string {
	return bearerAs(t, "65f1c2a3b4d5e6f708192a3b", "admin")
}

func bearerAs(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwtService.GenerateAccessToken(userID, role+"@school.edu", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router *gin.Engine, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func validRequest() map[string]interface{} {
	return map[string]interface{}{
		"id":                 "2025010001",
		"name":               map[string]string{"firstName": "John", "middleName": "Michael", "lastName": "Doe"},
		"gender":             "male",
		"dateOfBirth":        "2004-02-29",
		"email":              "a@b.com",
		"contactNo":          "0123456789",
		"emergencyContactNo": "0987654321",
		"bloodGroup":         "O+",
		"presentAddress":     "12 Main Street",
		"permanentAddress":   "34 Oak Avenue",
		"guardian": map[string]string{
			"fatherName": "Richard Doe", "fatherOccupation": "Engineer", "fatherContactNo": "0111111111",
			"motherName": "Jane Doe", "motherOccupation": "Teacher", "motherContactNo": "0222222222",
		},
		"localGuardian": map[string]string{"name": "Mark Smith", "occupation": "Doctor", "contactNo": "0333333333", "address": "56 Pine Road"},
	}
}

func TestPing(t *testing.T) {
	w := do(newRouter(&stubStudentService{}), http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["message"])
}

func TestCreateStudent_Created(t *testing.T) {
	w := do(newRouter(&stubStudentService{}), http.MethodPost, "/api/v1/students", bearer(t), validRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "John Michael Doe", data["fullName"])
	assert.Equal(t, "2004-02-29", data["dateOfBirth"])
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, false, data["isDeleted"])
}

func TestCreateStudent_RequiresToken(t *testing.T) {
	router := newRouter(&stubStudentService{})

	w := do(router, http.MethodPost, "/api/v1/students", "", validRequest())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/v1/students", "Bearer not.a.token", validRequest())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(dto.ErrorCodeInvalidToken), decode(t, w)["error"].(map[string]interface{})["code"])
}

func TestCreateStudent_ValidationFailure(t *testing.T) {
	req := validRequest()
	req["name"] = map[string]string{"firstName": "john", "lastName": "Doe2"}
	req["email"] = "not-an-email"

	w := do(newRouter(&stubStudentService{}), http.MethodPost, "/api/v1/students", bearer(t), req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errBody := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, string(dto.ErrorCodeValidationFailed), errBody["code"])
	details := errBody["details"].([]interface{})
	require.Len(t, details, 3)
	first := details[0].(map[string]interface{})
	assert.Equal(t, "name.firstName", first["field"])
	assert.Equal(t, "john is not in capitalize format.", first["message"])
}

func TestCreateStudent_BadDateAndMalformedBody(t *testing.T) {
	router := newRouter(&stubStudentService{})

	req := validRequest()
	req["dateOfBirth"] = "29/02/2004"
	w := do(router, http.MethodPost, "/api/v1/students", bearer(t), req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dateOfBirth", decode(t, w)["error"].(map[string]interface{})["field"])

	r := httptest.NewRequest(http.MethodPost, "/api/v1/students", bytes.NewBufferString("{"))
	r.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStudent_Conflict(t *testing.T) {
	w := do(newRouter(&stubStudentService{err: apperrors.ErrEmailAlreadyExists}), http.MethodPost, "/api/v1/students", bearer(t), validRequest())
	require.Equal(t, http.StatusConflict, w.Code)

	errBody := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "email", errBody["field"])
	assert.Equal(t, "email already exists", errBody["message"])
}

func TestGetStudent(t *testing.T) {
	svc := &stubStudentService{student: &models.Student{ID: "S-1", Name: models.UserName{FirstName: "John", LastName: "Doe"}}}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/students/S-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "S-1", svc.lastID)
	assert.Equal(t, "John Doe", decode(t, w)["data"].(map[string]interface{})["fullName"])

	svc.err = apperrors.ErrStudentNotFound
	w = do(newRouter(svc), http.MethodGet, "/api/v1/students/S-2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStudents_PassesFilter(t *testing.T) {
	svc := &stubStudentService{list: []*models.Student{{ID: "S-1"}}}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/students?page=2&size=5&gender=female&bloodGroup=AB-&searchTerm=doe&email=a@b.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, svc.lastPage)
	assert.Equal(t, 5, svc.lastSize)
	assert.Equal(t, repositories.StudentFilter{Email: "a@b.com", Gender: models.GenderFemale, BloodGroup: models.BloodGroupABNegative, SearchTerm: "doe"}, svc.lastFilter)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["items"], 1)
	assert.EqualValues(t, 1, data["pagination"].(map[string]interface{})["totalItems"])
}

func TestGetStudentStats(t *testing.T) {
	svc := &stubStudentService{groups: []models.GroupCount{{Key: "A+", Count: 2}}}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/students/stats?groupBy=bloodGroup", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GroupByBloodGroup, svc.lastGroupBy)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "bloodGroup", data["groupBy"])
	assert.Len(t, data["groups"], 1)

	w = do(newRouter(svc), http.MethodGet, "/api/v1/students/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GroupByGender, svc.lastGroupBy)

	svc.err = apperrors.NewBadRequestError("cannot group students by \"email\"")
	w = do(newRouter(svc), http.MethodGet, "/api/v1/students/stats?groupBy=email", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStudent(t *testing.T) {
	svc := &stubStudentService{student: &models.Student{ID: "S-1", Email: "a@b.com"}}
	w := do(newRouter(svc), http.MethodPatch, "/api/v1/students/S-1", bearer(t), map[string]interface{}{
		"email":       "new@b.com",
		"dateOfBirth": "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "S-1", svc.lastID)
	require.NotNil(t, svc.lastPatch.Email)
	assert.Equal(t, "new@b.com", *svc.lastPatch.Email)
	assert.True(t, svc.lastPatch.ClearDateOfBirth)
	assert.Nil(t, svc.lastPatch.Name)

	w = do(newRouter(svc), http.MethodPatch, "/api/v1/students/S-1", "", map[string]interface{}{"email": "x@b.com"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteStudent(t *testing.T) {
	svc := &stubStudentService{}
	w := do(newRouter(svc), http.MethodDelete, "/api/v1/students/S-1", bearer(t), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "S-1", svc.lastID)

	svc.err = apperrors.ErrStudentNotFound
	w = do(newRouter(svc), http.MethodDelete, "/api/v1/students/S-1", bearer(t), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentRole_OwnRecordOnly(t *testing.T) {
	const userID = "65f1c2a3b4d5e6f708192a3c"
	svc := &stubStudentService{student: &models.Student{ID: "S-1", User: userID, Email: "a@b.com"}}
	router := newRouter(svc)

	w := do(router, http.MethodPatch, "/api/v1/students/S-1", bearerAs(t, userID, "student"), map[string]interface{}{"contactNo": "0100000000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodPatch, "/api/v1/students/S-1", bearerAs(t, "65f1c2a3b4d5e6f708192a3d", "student"), map[string]interface{}{"contactNo": "0100000000"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(dto.ErrorCodeForbidden), decode(t, w)["error"].(map[string]interface{})["code"])

	w = do(router, http.MethodDelete, "/api/v1/students/S-1", bearerAs(t, userID, "student"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, "/api/v1/students", bearerAs(t, userID, "faculty"), validRequest())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPost, "/api/v1/students", bearerAs(t, userID, "superAdmin"), validRequest())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestStudentRole_MissingRecord(t *testing.T) {
	svc := &stubStudentService{err: apperrors.ErrStudentNotFound}
	w := do(newRouter(svc), http.MethodPatch, "/api/v1/students/S-9", bearerAs(t, "65f1c2a3b4d5e6f708192a3c", "student"), map[string]interface{}{"contactNo": "0100000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentRole_AdministrativeFields(t *testing.T) {
	const userID = "65f1c2a3b4d5e6f708192a3c"
	bodies := map[string]map[string]interface{}{
		"status":            {"status": "active"},
		"user":              {"user": "65f1c2a3b4d5e6f708192a3d"},
		"admissionSemester": {"admissionSemester": "65f1c2a3b4d5e6f708192a3e"},
	}

	for field, body := range bodies {
		t.Run(field, func(t *testing.T) {
			svc := &stubStudentService{student: &models.Student{ID: "S-1", User: userID, Status: models.StatusBlocked}}

			w := do(newRouter(svc), http.MethodPatch, "/api/v1/students/S-1", bearerAs(t, userID, "student"), body)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Nil(t, svc.lastPatch, "the update must not reach the service")
			assert.Equal(t, models.StatusBlocked, svc.student.Status)
			assert.Equal(t, userID, svc.student.User)

			w = do(newRouter(svc), http.MethodPatch, "/api/v1/students/S-1", bearer(t), body)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}
