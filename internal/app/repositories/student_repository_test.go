package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentrecords/internal/app/migrations"
	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func sampleStudent(id, email string) *models.Student {
	dob := time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC)
	return &models.Student{
		ID:                 id,
		Name:               models.UserName{FirstName: "John", MiddleName: "Michael", LastName: "Doe"},
		Gender:             models.GenderMale,
		DateOfBirth:        &dob,
		Email:              email,
		ContactNo:          "0123456789",
		EmergencyContactNo: "0987654321",
		BloodGroup:         models.BloodGroupAPositive,
		PresentAddress:     "12 Main Street",
		PermanentAddress:   "34 Oak Avenue",
		Guardian: models.Guardian{
			FatherName: "Richard Doe", FatherOccupation: "Engineer", FatherContactNo: "0111111111",
			MotherName: "Jane Doe", MotherOccupation: "Teacher", MotherContactNo: "0222222222",
		},
		LocalGuardian: models.LocalGuardian{Name: "Mark Smith", Occupation: "Doctor", ContactNo: "0333333333", Address: "56 Pine Road"},
		Status:        models.StatusActive,
	}
}

func TestNotDeleted(t *testing.T) {
	in := bson.M{"email": "a@b.com", deletedField: true}
	out := notDeleted(in)

	assert.Equal(t, bson.M{"$ne": true}, out[deletedField])
	assert.Equal(t, "a@b.com", out["email"])
	assert.Equal(t, true, in[deletedField], "input filter must not be modified")

	assert.Equal(t, bson.M{deletedField: bson.M{"$ne": true}}, notDeleted(nil))
}

func TestWithNotDeleted(t *testing.T) {
	group := groupPipeline(models.GroupByGender)
	out := withNotDeleted(group)

	require.Len(t, out, len(group)+1)
	assert.Equal(t, "$match", out[0][0].Key)
	assert.Equal(t, bson.D{{Key: deletedField, Value: bson.D{{Key: "$ne", Value: true}}}}, out[0][0].Value)
	assert.Equal(t, "$group", out[1][0].Key)
	assert.Len(t, group, 2, "input pipeline must not be modified")

	empty := withNotDeleted(nil)
	require.Len(t, empty, 1)
	assert.Equal(t, "$match", empty[0][0].Key)
}

func TestGroupPipeline(t *testing.T) {
	p := groupPipeline(models.GroupByBloodGroup)
	require.Len(t, p, 2)
	group := p[0][0].Value.(bson.D)
	assert.Equal(t, "$bloodGroup", group[0].Value)
}

func TestMongoFilter(t *testing.T) {
	assert.Empty(t, mongoFilter(StudentFilter{}))

	f := mongoFilter(StudentFilter{Email: "a@b.com", Gender: models.GenderFemale, BloodGroup: models.BloodGroupONegative, SearchTerm: "o'neil (jr)"})
	assert.Equal(t, "a@b.com", f["email"])
	assert.Equal(t, "female", f["gender"])
	assert.Equal(t, "O-", f["bloodGroup"])

	or := f["$or"].(bson.A)
	require.Len(t, or, 4)
	rx := or[0].(bson.M)["email"].(primitive.Regex)
	assert.Equal(t, `o'neil \(jr\)`, rx.Pattern)
	assert.Equal(t, "i", rx.Options)
}

func TestStudentDocument_RoundTrip(t *testing.T) {
	s := sampleStudent("S-1", "a@b.com")
	s.User = "65f1c2a3b4d5e6f708192a3b"
	s.AdmissionSemester = "65f1c2a3b4d5e6f708192a3c"
	s.RecordID = "65f1c2a3b4d5e6f708192a3d"

	doc, err := toStudentDocument(s)
	require.NoError(t, err)
	assert.Equal(t, "S-1", doc.StudentID)
	require.NotNil(t, doc.User)
	assert.Equal(t, s.User, doc.User.Hex())

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded studentDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	back := decoded.toModel()
	assert.Equal(t, s.RecordID, back.RecordID)
	assert.Equal(t, s.User, back.User)
	assert.Equal(t, s.AdmissionSemester, back.AdmissionSemester)
	assert.Equal(t, s.Name, back.Name)
	assert.Equal(t, s.Guardian, back.Guardian)
	assert.Equal(t, s.LocalGuardian, back.LocalGuardian)
	assert.Equal(t, s.DateOfBirth.Unix(), back.DateOfBirth.Unix())
	assert.Equal(t, s.FullName(), back.FullName())

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	_, hasFullName := fields["fullName"]
	assert.False(t, hasFullName, "fullName is never persisted")
}

func TestStudentDocument_InvalidReference(t *testing.T) {
	s := sampleStudent("S-1", "a@b.com")
	s.User = "not-an-object-id"

	_, err := toStudentDocument(s)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestIsEmptyRef(t *testing.T) {
	var oid *primitive.ObjectID
	var ts *time.Time
	assert.True(t, isEmptyRef(""))
	assert.True(t, isEmptyRef(oid))
	assert.True(t, isEmptyRef(ts))
	assert.False(t, isEmptyRef("x"))
	now := time.Now()
	assert.False(t, isEmptyRef(&now))
}

func newSQLRepo() *StudentPostgresRepository {
	return NewStudentPostgresRepository(nil)
}

func TestPostgresQueries_ExcludeDeleted(t *testing.T) {
	r := newSQLRepo()

	sql, _, err := r.findStudentsQuery(StudentFilter{}, 20, 10).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE "+notDeletedPredicate)
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.Contains(t, sql, "LIMIT 10 OFFSET 20")

	sql, _, err = r.aggregateQuery("gender").ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, notDeletedPredicate)
	assert.Contains(t, sql, "GROUP BY gender")

	sql, _, err = notDeletedSelect(r.sb.Select("1").From(studentsTable)).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM students WHERE is_deleted IS NOT TRUE", sql)
}

func TestPostgresQueries_Filter(t *testing.T) {
	r := newSQLRepo()

	sql, args, err := r.findStudentsQuery(StudentFilter{
		Email:      "a@b.com",
		Gender:     models.GenderOther,
		BloodGroup: models.BloodGroupBPositive,
		SearchTerm: "50%_off",
	}, 0, 5).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "email = $1")
	assert.Contains(t, sql, "gender = $2")
	assert.Contains(t, sql, "blood_group = $3")
	assert.Contains(t, sql, "email ILIKE $4")
	assert.Equal(t, 7, len(args))
	assert.Equal(t, `%50\%\_off%`, args[3])
	assert.True(t, strings.Index(sql, notDeletedPredicate) < strings.Index(sql, "email = $1"))
}

func TestMapPostgresWriteError(t *testing.T) {
	assert.Nil(t, mapPostgresWriteError(errors.New("connection refused")))

	err := mapPostgresWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "students_email_key"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	err = mapPostgresWriteError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(50)"}))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

// runRepositoryContract exercises a live repository; reset must empty the store
func runRepositoryContract(t *testing.T, repo StudentRepository, reset func()) {
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	t.Run("create and find", func(t *testing.T) {
		reset()
		s := sampleStudent("S-1", "a@b.com")
		require.NoError(t, repo.Create(ctx, s))
		assert.NotEmpty(t, s.RecordID)

		found, err := repo.FindByID(ctx, "S-1")
		require.NoError(t, err)
		assert.Equal(t, s.Email, found.Email)
		assert.Equal(t, s.Guardian, found.Guardian)
		assert.Equal(t, "2004-02-29", found.DateOfBirth.UTC().Format(models.DateLayout))
		assert.False(t, found.IsDeleted)
	})

	t.Run("duplicate keys conflict", func(t *testing.T) {
		reset()
		require.NoError(t, repo.Create(ctx, sampleStudent("S-1", "a@b.com")))

		err := repo.Create(ctx, sampleStudent("S-2", "a@b.com"))
		assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

		err = repo.Create(ctx, sampleStudent("S-1", "c@d.com"))
		assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)

		linked := sampleStudent("S-3", "e@f.com")
		linked.User = "65f1c2a3b4d5e6f708192a3b"
		require.NoError(t, repo.Create(ctx, linked))
		again := sampleStudent("S-4", "g@h.com")
		again.User = linked.User
		assert.ErrorIs(t, repo.Create(ctx, again), apperrors.ErrUserAlreadyLinked)
	})

	t.Run("soft deleted students are hidden", func(t *testing.T) {
		reset()
		require.NoError(t, repo.Create(ctx, sampleStudent("S-1", "a@b.com")))
		other := sampleStudent("S-2", "c@d.com")
		other.Gender = models.GenderFemale
		require.NoError(t, repo.Create(ctx, other))

		require.NoError(t, repo.SoftDelete(ctx, "S-1"))

		_, err := repo.FindByID(ctx, "S-1")
		assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

		list, err := repo.Find(ctx, StudentFilter{}, 0, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "S-2", list[0].ID)

		total, err := repo.Count(ctx, StudentFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		groups, err := repo.Aggregate(ctx, models.GroupByGender)
		require.NoError(t, err)
		assert.Equal(t, []models.GroupCount{{Key: "female", Count: 1}}, groups)

		assert.ErrorIs(t, repo.SoftDelete(ctx, "S-1"), apperrors.ErrStudentNotFound)
		deleted := sampleStudent("S-1", "a@b.com")
		assert.ErrorIs(t, repo.Update(ctx, deleted), apperrors.ErrStudentNotFound)
	})

	t.Run("update and search", func(t *testing.T) {
		reset()
		s := sampleStudent("S-1", "a@b.com")
		require.NoError(t, repo.Create(ctx, s))

		s.Email = "new@b.com"
		s.BloodGroup = ""
		s.DateOfBirth = nil
		require.NoError(t, repo.Update(ctx, s))

		found, err := repo.FindByID(ctx, "S-1")
		require.NoError(t, err)
		assert.Equal(t, "new@b.com", found.Email)
		assert.Empty(t, found.BloodGroup)
		assert.Nil(t, found.DateOfBirth)

		list, err := repo.Find(ctx, StudentFilter{SearchTerm: "MAIN st"}, 0, 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = repo.Find(ctx, StudentFilter{SearchTerm: "nowhere"}, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestStudentMongoRepository_Live(t *testing.T) {
	uri := os.Getenv("STUDENTS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STUDENTS_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	database := client.Database("students_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() { _ = database.Drop(ctx) })

	repo := NewStudentMongoRepository(database)
	runRepositoryContract(t, repo, func() {
		_, err := database.Collection(StudentCollection).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	})
}

func TestStudentPostgresRepository_Live(t *testing.T) {
	dsn := os.Getenv("STUDENTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STUDENTS_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool).MigrateFromDirectory(ctx, filepath.Join("..", "..", "..", "migrations")))

	repo := NewStudentPostgresRepository(pool)
	runRepositoryContract(t, repo, func() {
		_, err := pool.Exec(ctx, "TRUNCATE TABLE students")
		require.NoError(t, err)
	})
}
