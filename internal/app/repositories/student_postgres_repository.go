package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"github.com/yigit/studentrecords/internal/pkg/dberrors"
	"github.com/yigit/studentrecords/internal/pkg/helpers"
	"github.com/yigit/studentrecords/internal/pkg/logger"
)

const studentsTable = "students"

// notDeletedPredicate excludes soft-deleted rows; NULL counts as not deleted
const notDeletedPredicate = "is_deleted IS NOT TRUE"

// Unique constraint names as generated by PostgreSQL for the UNIQUE columns
const (
	studentIDConstraint = "students_student_id_key"
	emailConstraint     = "students_email_key"
	userIDConstraint    = "students_user_id_key"
)

var studentColumns = []string{
	"record_id", "student_id", "user_id", "first_name", "middle_name", "last_name",
	"gender", "date_of_birth", "email", "contact_no", "emergency_contact_no", "blood_group",
	"present_address", "permanent_address", "guardian", "local_guardian", "profile_image",
	"admission_semester", "status", "is_deleted", "created_at", "updated_at",
}

// groupColumns maps aggregation keys to their column
var groupColumns = map[models.GroupField]string{
	models.GroupByGender:     "gender",
	models.GroupByBloodGroup: "blood_group",
	models.GroupByStatus:     "status",
}

// StudentPostgresRepository stores students in the 'students' table
type StudentPostgresRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentPostgresRepository creates a new StudentPostgresRepository
func NewStudentPostgresRepository(db *pgxpool.Pool) *StudentPostgresRepository {
	return &StudentPostgresRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// notDeletedSelect restricts a select to students not flagged as deleted
func notDeletedSelect(b squirrel.SelectBuilder) squirrel.SelectBuilder {
	return b.Where(notDeletedPredicate)
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// applyStudentFilter adds the filter conditions to a select
func applyStudentFilter(b squirrel.SelectBuilder, f StudentFilter) squirrel.SelectBuilder {
	if f.Email != "" {
		b = b.Where(squirrel.Eq{"email": f.Email})
	}
	if f.Gender != "" {
		b = b.Where(squirrel.Eq{"gender": string(f.Gender)})
	}
	if f.BloodGroup != "" {
		b = b.Where(squirrel.Eq{"blood_group": string(f.BloodGroup)})
	}
	if f.SearchTerm != "" {
		pattern := "%" + escapeLike(f.SearchTerm) + "%"
		b = b.Where(squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"present_address": pattern},
		})
	}
	return b
}

// findStudentsQuery builds the list query
func (r *StudentPostgresRepository) findStudentsQuery(f StudentFilter, offset uint64, limit int) squirrel.SelectBuilder {
	q := applyStudentFilter(notDeletedSelect(r.sb.Select(studentColumns...).From(studentsTable)), f).
		OrderBy("created_at DESC", "record_id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

// aggregateQuery builds the group-by count query
func (r *StudentPostgresRepository) aggregateQuery(column string) squirrel.SelectBuilder {
	return notDeletedSelect(r.sb.Select(column, "COUNT(*)").From(studentsTable)).
		GroupBy(column).
		OrderBy(column + " ASC NULLS FIRST")
}

// mapPostgresWriteError converts unique violations into conflict errors and
// oversized values into bad request errors
func mapPostgresWriteError(err error) error {
	switch {
	case dberrors.IsStringTooLongError(err):
		return apperrors.NewBadRequestError("value too long for a student field")
	case dberrors.IsDuplicateConstraintError(err, studentIDConstraint):
		return apperrors.ErrStudentIDAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, emailConstraint):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, userIDConstraint):
		return apperrors.ErrUserAlreadyLinked
	}
	return nil
}

// scanStudent reads one row selected with studentColumns
func scanStudent(row pgx.Row) (*models.Student, error) {
	var (
		s                                          models.Student
		userID, middleName, bloodGroup, image, sem sql.NullString
		gender, status                             string
	)
	err := row.Scan(
		&s.RecordID, &s.ID, &userID, &s.Name.FirstName, &middleName, &s.Name.LastName,
		&gender, &s.DateOfBirth, &s.Email, &s.ContactNo, &s.EmergencyContactNo, &bloodGroup,
		&s.PresentAddress, &s.PermanentAddress, &s.Guardian, &s.LocalGuardian, &image,
		&sem, &status, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.User = userID.String
	s.Name.MiddleName = middleName.String
	s.Gender = models.Gender(gender)
	s.BloodGroup = models.BloodGroup(bloodGroup.String)
	s.ProfileImage = image.String
	s.AdmissionSemester = sem.String
	s.Status = models.Status(status)
	return &s, nil
}

// EnsureIndexes creates the partial index used by list queries. The unique
// constraints themselves are created by the migrations.
func (r *StudentPostgresRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS students_active_created_at_idx
		ON students (created_at DESC)
		WHERE is_deleted IS NOT TRUE`)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating students index")
		return fmt.Errorf("error creating students index: %w", err)
	}
	return nil
}

// Create inserts a new student row
func (r *StudentPostgresRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.RecordID = uuid.New().String()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.IsDeleted = false

	query, args, err := r.sb.Insert(studentsTable).
		Columns(studentColumns...).
		Values(
			student.RecordID, student.ID, helpers.GetContentNullString(student.User),
			student.Name.FirstName, helpers.GetContentNullString(student.Name.MiddleName), student.Name.LastName,
			string(student.Gender), student.DateOfBirth, student.Email, student.ContactNo, student.EmergencyContactNo,
			helpers.GetContentNullString(string(student.BloodGroup)), student.PresentAddress, student.PermanentAddress,
			student.Guardian, student.LocalGuardian, helpers.GetContentNullString(student.ProfileImage),
			helpers.GetContentNullString(student.AdmissionSemester), string(student.Status), student.IsDeleted,
			student.CreatedAt, student.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create student SQL")
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		student.RecordID = ""
		if conflict := mapPostgresWriteError(err); conflict != nil {
			logger.Warn().Str("studentID", student.ID).Str("email", student.Email).Err(conflict).Msg("Create student rejected by a table constraint")
			return conflict
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}

	logger.Info().Str("studentID", student.ID).Str("recordID", student.RecordID).Msg("Student created successfully")
	return nil
}

// FindByID retrieves a student by business ID
func (r *StudentPostgresRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query, args, err := notDeletedSelect(r.sb.Select(studentColumns...).From(studentsTable)).
		Where(squirrel.Eq{"student_id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student by ID SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return student, nil
}

// Find retrieves a page of students, newest first
func (r *StudentPostgresRepository) Find(ctx context.Context, filter StudentFilter, offset uint64, limit int) ([]*models.Student, error) {
	query, args, err := r.findStudentsQuery(filter, offset, limit).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building find students SQL")
		return nil, fmt.Errorf("failed to build find students query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing find students query")
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning student row during find")
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating student rows")
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

// Count returns the number of students matching the filter
func (r *StudentPostgresRepository) Count(ctx context.Context, filter StudentFilter) (int64, error) {
	query, args, err := applyStudentFilter(notDeletedSelect(r.sb.Select("COUNT(*)").From(studentsTable)), filter).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count students SQL")
		return 0, fmt.Errorf("failed to build count students query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return 0, fmt.Errorf("error counting students: %w", err)
	}
	return total, nil
}

// Aggregate counts students grouped by the given field
func (r *StudentPostgresRepository) Aggregate(ctx context.Context, groupBy models.GroupField) ([]models.GroupCount, error) {
	column, ok := groupColumns[groupBy]
	if !ok {
		return nil, apperrors.NewBadRequestError("unsupported group field: " + string(groupBy))
	}

	query, args, err := r.aggregateQuery(column).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building aggregate students SQL")
		return nil, fmt.Errorf("failed to build aggregate students query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("groupBy", string(groupBy)).Msg("Error executing aggregate students query")
		return nil, fmt.Errorf("error aggregating students: %w", err)
	}
	defer rows.Close()

	result := []models.GroupCount{}
	for rows.Next() {
		var (
			key   sql.NullString
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("error scanning aggregate row: %w", err)
		}
		result = append(result, models.GroupCount{Key: key.String, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return result, nil
}

// Update replaces the mutable fields of an existing student
func (r *StudentPostgresRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	query, args, err := r.sb.Update(studentsTable).
		SetMap(map[string]interface{}{
			"user_id":              helpers.GetContentNullString(student.User),
			"first_name":           student.Name.FirstName,
			"middle_name":          helpers.GetContentNullString(student.Name.MiddleName),
			"last_name":            student.Name.LastName,
			"gender":               string(student.Gender),
			"date_of_birth":        student.DateOfBirth,
			"email":                student.Email,
			"contact_no":           student.ContactNo,
			"emergency_contact_no": student.EmergencyContactNo,
			"blood_group":          helpers.GetContentNullString(string(student.BloodGroup)),
			"present_address":      student.PresentAddress,
			"permanent_address":    student.PermanentAddress,
			"guardian":             student.Guardian,
			"local_guardian":       student.LocalGuardian,
			"profile_image":        helpers.GetContentNullString(student.ProfileImage),
			"admission_semester":   helpers.GetContentNullString(student.AdmissionSemester),
			"status":               string(student.Status),
			"updated_at":           student.UpdatedAt,
		}).
		Where(squirrel.Eq{"student_id": student.ID}).
		Where(notDeletedPredicate).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update student SQL")
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if conflict := mapPostgresWriteError(err); conflict != nil {
			logger.Warn().Str("studentID", student.ID).Err(conflict).Msg("Update student rejected by a table constraint")
			return conflict
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing update student query")
		return fmt.Errorf("error updating student: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// SoftDelete flags a student as deleted
func (r *StudentPostgresRepository) SoftDelete(ctx context.Context, id string) error {
	query, args, err := r.sb.Update(studentsTable).
		Set("is_deleted", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"student_id": id}).
		Where(notDeletedPredicate).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building soft delete student SQL")
		return fmt.Errorf("failed to build delete student query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Error executing soft delete student query")
		return fmt.Errorf("error deleting student: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}

	logger.Info().Str("studentID", id).Msg("Student soft deleted")
	return nil
}
