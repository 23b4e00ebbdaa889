package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentrecords/internal/app/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// StudentRepository is the storage contract for student records.
// Every read path excludes soft-deleted students.
type StudentRepository interface {
	// Create inserts a new student. Unique violations are reported as
	// apperrors.ErrStudentIDAlreadyExists, ErrEmailAlreadyExists or ErrUserAlreadyLinked.
	Create(ctx context.Context, student *models.Student) error
	// FindByID returns the student with the given business ID or apperrors.ErrStudentNotFound.
	FindByID(ctx context.Context, id string) (*models.Student, error)
	// Find returns a page of students matching the filter.
	Find(ctx context.Context, filter StudentFilter, offset uint64, limit int) ([]*models.Student, error)
	// Count returns the number of students matching the filter.
	Count(ctx context.Context, filter StudentFilter) (int64, error)
	// Aggregate counts students grouped by the given field.
	Aggregate(ctx context.Context, groupBy models.GroupField) ([]models.GroupCount, error)
	// Update replaces the mutable fields of the student identified by its business ID.
	Update(ctx context.Context, student *models.Student) error
	// SoftDelete flags the student as deleted.
	SoftDelete(ctx context.Context, id string) error
	// EnsureIndexes creates the unique indexes backing id, email and user.
	EnsureIndexes(ctx context.Context) error
}

// StudentFilter narrows list and count queries; empty fields are ignored
type StudentFilter struct {
	Email      string
	Gender     models.Gender
	BloodGroup models.BloodGroup
	SearchTerm string // Case-insensitive match on email, first name, last name and present address
}

// Repositories holds all the repository instances
type Repositories struct {
	StudentRepository StudentRepository
}

// NewPostgresRepositories initializes all repositories on a PostgreSQL pool
func NewPostgresRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		StudentRepository: NewStudentPostgresRepository(db),
	}
}

// NewMongoRepositories initializes all repositories on a MongoDB database
func NewMongoRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		StudentRepository: NewStudentMongoRepository(db),
	}
}
