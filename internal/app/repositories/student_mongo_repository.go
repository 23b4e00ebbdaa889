package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"github.com/yigit/studentrecords/internal/pkg/dberrors"
	"github.com/yigit/studentrecords/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StudentCollection is the MongoDB collection holding student documents
const StudentCollection = "students"

// Unique index names; duplicate key errors are classified by them
const (
	studentIDIndex = "id_1"
	emailIndex     = "email_1"
	userIndex      = "user_1"
)

const deletedField = "isDeleted"

// userNameDocument is the embedded name sub-document
type userNameDocument struct {
	FirstName  string `bson:"firstName"`
	MiddleName string `bson:"middleName,omitempty"`
	LastName   string `bson:"lastName"`
}

// guardianDocument is the embedded guardian sub-document
type guardianDocument struct {
	FatherName       string `bson:"fatherName"`
	FatherOccupation string `bson:"fatherOccupation"`
	FatherContactNo  string `bson:"fatherContactNo"`
	MotherName       string `bson:"motherName"`
	MotherOccupation string `bson:"motherOccupation"`
	MotherContactNo  string `bson:"motherContactNo"`
}

// localGuardianDocument is the embedded local guardian sub-document
type localGuardianDocument struct {
	Name       string `bson:"name"`
	Occupation string `bson:"occupation"`
	ContactNo  string `bson:"contactNo"`
	Address    string `bson:"address"`
}

// studentDocument represents a student in MongoDB. It is kept apart from
// models.Student so ObjectID references stay a storage concern.
type studentDocument struct {
	ID                 primitive.ObjectID    `bson:"_id,omitempty"`
	StudentID          string                `bson:"id"`
	User               *primitive.ObjectID   `bson:"user,omitempty"`
	Name               userNameDocument      `bson:"name"`
	Gender             string                `bson:"gender"`
	DateOfBirth        *time.Time            `bson:"dateOfBirth,omitempty"`
	Email              string                `bson:"email"`
	ContactNo          string                `bson:"contactNo"`
	EmergencyContactNo string                `bson:"emergencyContactNo"`
	BloodGroup         string                `bson:"bloodGroup,omitempty"`
	PresentAddress     string                `bson:"presentAddress"`
	PermanentAddress   string                `bson:"permanentAddress"`
	Guardian           guardianDocument      `bson:"guardian"`
	LocalGuardian      localGuardianDocument `bson:"localGuardian"`
	ProfileImage       string                `bson:"profileImage,omitempty"`
	AdmissionSemester  *primitive.ObjectID   `bson:"admissionSemester,omitempty"`
	Status             string                `bson:"status"`
	IsDeleted          bool                  `bson:"isDeleted"`
	CreatedAt          time.Time             `bson:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt"`
}

// objectIDRef parses an optional ObjectID reference
func objectIDRef(field, hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, apperrors.NewValidationError(field, hex, hex+" is not a valid ObjectId")
	}
	return &oid, nil
}

func hexRef(oid *primitive.ObjectID) string {
	if oid == nil {
		return ""
	}
	return oid.Hex()
}

// toStudentDocument converts the model into its MongoDB representation
func toStudentDocument(s *models.Student) (*studentDocument, error) {
	user, err := objectIDRef("user", s.User)
	if err != nil {
		return nil, err
	}
	semester, err := objectIDRef("admissionSemester", s.AdmissionSemester)
	if err != nil {
		return nil, err
	}

	doc := &studentDocument{
		StudentID: s.ID,
		User:      user,
		Name: userNameDocument{
			FirstName:  s.Name.FirstName,
			MiddleName: s.Name.MiddleName,
			LastName:   s.Name.LastName,
		},
		Gender:             string(s.Gender),
		DateOfBirth:        s.DateOfBirth,
		Email:              s.Email,
		ContactNo:          s.ContactNo,
		EmergencyContactNo: s.EmergencyContactNo,
		BloodGroup:         string(s.BloodGroup),
		PresentAddress:     s.PresentAddress,
		PermanentAddress:   s.PermanentAddress,
		Guardian:           guardianDocument(s.Guardian),
		LocalGuardian:      localGuardianDocument(s.LocalGuardian),
		ProfileImage:       s.ProfileImage,
		AdmissionSemester:  semester,
		Status:             string(s.Status),
		IsDeleted:          s.IsDeleted,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}

	if s.RecordID != "" {
		oid, err := primitive.ObjectIDFromHex(s.RecordID)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q: %w", s.RecordID, err)
		}
		doc.ID = oid
	}
	return doc, nil
}

// toModel converts the stored document back into a student
func (d *studentDocument) toModel() *models.Student {
	return &models.Student{
		RecordID: d.ID.Hex(),
		ID:       d.StudentID,
		User:     hexRef(d.User),
		Name: models.UserName{
			FirstName:  d.Name.FirstName,
			MiddleName: d.Name.MiddleName,
			LastName:   d.Name.LastName,
		},
		Gender:             models.Gender(d.Gender),
		DateOfBirth:        d.DateOfBirth,
		Email:              d.Email,
		ContactNo:          d.ContactNo,
		EmergencyContactNo: d.EmergencyContactNo,
		BloodGroup:         models.BloodGroup(d.BloodGroup),
		PresentAddress:     d.PresentAddress,
		PermanentAddress:   d.PermanentAddress,
		Guardian:           models.Guardian(d.Guardian),
		LocalGuardian:      models.LocalGuardian(d.LocalGuardian),
		ProfileImage:       d.ProfileImage,
		AdmissionSemester:  hexRef(d.AdmissionSemester),
		Status:             models.Status(d.Status),
		IsDeleted:          d.IsDeleted,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// notDeleted returns a copy of filter that only matches students not flagged as deleted.
// A caller-supplied isDeleted condition is overridden.
func notDeleted(filter bson.M) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out[deletedField] = bson.M{"$ne": true}
	return out
}

// withNotDeleted prepends a $match stage excluding soft-deleted students to the pipeline.
func withNotDeleted(pipeline mongo.Pipeline) mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(pipeline)+1)
	out = append(out, bson.D{{Key: "$match", Value: bson.D{{Key: deletedField, Value: bson.D{{Key: "$ne", Value: true}}}}}})
	return append(out, pipeline...)
}

// mongoFilter translates a StudentFilter into a query document
func mongoFilter(f StudentFilter) bson.M {
	filter := bson.M{}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	if f.Gender != "" {
		filter["gender"] = string(f.Gender)
	}
	if f.BloodGroup != "" {
		filter["bloodGroup"] = string(f.BloodGroup)
	}
	if f.SearchTerm != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.SearchTerm), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"email": rx},
			bson.M{"name.firstName": rx},
			bson.M{"name.lastName": rx},
			bson.M{"presentAddress": rx},
		}
	}
	return filter
}

// mapMongoWriteError converts duplicate key errors into conflict errors
func mapMongoWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateIndexError(err, studentIDIndex):
		return apperrors.ErrStudentIDAlreadyExists
	case dberrors.IsDuplicateIndexError(err, emailIndex):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateIndexError(err, userIndex):
		return apperrors.ErrUserAlreadyLinked
	}
	return nil
}

// StudentMongoRepository stores students in a MongoDB collection
type StudentMongoRepository struct {
	coll *mongo.Collection
}

// NewStudentMongoRepository creates a new StudentMongoRepository
func NewStudentMongoRepository(db *mongo.Database) *StudentMongoRepository {
	return &StudentMongoRepository{
		coll: db.Collection(StudentCollection),
	}
}

// EnsureIndexes creates the unique indexes on id, email and user
func (r *StudentMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetName(studentIDIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetName(userIndex).SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		logger.Error().Err(err).Str("collection", StudentCollection).Msg("Error creating student indexes")
		return fmt.Errorf("error creating student indexes: %w", err)
	}
	return nil
}

// Create inserts a new student document
func (r *StudentMongoRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.IsDeleted = false

	doc, err := toStudentDocument(student)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if conflict := mapMongoWriteError(err); conflict != nil {
			logger.Warn().Str("studentID", student.ID).Str("email", student.Email).Err(conflict).Msg("Attempted to create student with duplicate key")
			return conflict
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error inserting student document")
		return fmt.Errorf("error creating student: %w", err)
	}

	student.RecordID = doc.ID.Hex()
	logger.Info().Str("studentID", student.ID).Str("recordID", student.RecordID).Msg("Student created successfully")
	return nil
}

// FindByID retrieves a student by business ID
func (r *StudentMongoRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var doc studentDocument
	err := r.coll.FindOne(ctx, notDeleted(bson.M{"id": id})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("studentID", id).Msg("Error decoding student document")
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return doc.toModel(), nil
}

// Find retrieves a page of students, newest first
func (r *StudentMongoRepository) Find(ctx context.Context, filter StudentFilter, offset uint64, limit int) ([]*models.Student, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, notDeleted(mongoFilter(filter)), opts)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing find students query")
		return nil, fmt.Errorf("error querying students: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []studentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Error().Err(err).Msg("Error decoding student documents")
		return nil, fmt.Errorf("error decoding students: %w", err)
	}

	students := make([]*models.Student, 0, len(docs))
	for i := range docs {
		students = append(students, docs[i].toModel())
	}
	return students, nil
}

// Count returns the number of students matching the filter
func (r *StudentMongoRepository) Count(ctx context.Context, filter StudentFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, notDeleted(mongoFilter(filter)))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return 0, fmt.Errorf("error counting students: %w", err)
	}
	return n, nil
}

// aggregate runs a pipeline on the student collection with soft-deleted students excluded
func (r *StudentMongoRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.coll.Aggregate(ctx, withNotDeleted(pipeline))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// groupPipeline counts documents per value of field, ordered by value
func groupPipeline(field models.GroupField) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + string(field)},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// Aggregate counts students grouped by the given field
func (r *StudentMongoRepository) Aggregate(ctx context.Context, groupBy models.GroupField) ([]models.GroupCount, error) {
	if !groupBy.Valid() {
		return nil, apperrors.NewBadRequestError("unsupported group field: " + string(groupBy))
	}

	pipeline := groupPipeline(groupBy)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		logger.Error().Err(err).Str("groupBy", string(groupBy)).Msg("Error aggregating students")
		return nil, fmt.Errorf("error aggregating students: %w", err)
	}

	result := make([]models.GroupCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.GroupCount{Key: row.Key, Count: row.Count})
	}
	return result, nil
}

// Update replaces the mutable fields of an existing student
func (r *StudentMongoRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	doc, err := toStudentDocument(student)
	if err != nil {
		return err
	}

	set := bson.M{
		"name":               doc.Name,
		"gender":             doc.Gender,
		"email":              doc.Email,
		"contactNo":          doc.ContactNo,
		"emergencyContactNo": doc.EmergencyContactNo,
		"presentAddress":     doc.PresentAddress,
		"permanentAddress":   doc.PermanentAddress,
		"guardian":           doc.Guardian,
		"localGuardian":      doc.LocalGuardian,
		"status":             doc.Status,
		"updatedAt":          doc.UpdatedAt,
	}
	unset := bson.M{}
	optional := map[string]interface{}{
		"user":              doc.User,
		"dateOfBirth":       doc.DateOfBirth,
		"bloodGroup":        doc.BloodGroup,
		"profileImage":      doc.ProfileImage,
		"admissionSemester": doc.AdmissionSemester,
	}
	for field, value := range optional {
		if isEmptyRef(value) {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, notDeleted(bson.M{"id": student.ID}), update)
	if err != nil {
		if conflict := mapMongoWriteError(err); conflict != nil {
			logger.Warn().Str("studentID", student.ID).Err(conflict).Msg("Attempted to update student to a duplicate key")
			return conflict
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error updating student document")
		return fmt.Errorf("error updating student: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

func isEmptyRef(v interface{}) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case *primitive.ObjectID:
		return x == nil
	case *time.Time:
		return x == nil
	}
	return v == nil
}

// SoftDelete flags a student as deleted
func (r *StudentMongoRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, notDeleted(bson.M{"id": id}), bson.M{
		"$set": bson.M{deletedField: true, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Error soft deleting student")
		return fmt.Errorf("error deleting student: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrStudentNotFound
	}

	logger.Info().Str("studentID", id).Msg("Student soft deleted")
	return nil
}
