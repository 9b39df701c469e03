package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bizchat/bizchat-api/internal/model"
)

// UserRepository defines the interface for user-record database operations.
type UserRepository interface {
	// CreateUser inserts a new user document. The document id is the
	// provider subject id, so inserting an id that already exists fails
	// with a duplicate key error; callers use this as an atomic
	// insert-if-absent.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)

	// GetUser retrieves a user document by subject id.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// UpdateProfile sets the profile-completion fields on a user.
	UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*model.User, error)

	// SetVerificationCode replaces the outstanding verification code and
	// its expiry on a user.
	SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) (*model.User, error)

	// MarkVerified flips the verified flag and clears both code fields.
	MarkVerified(ctx context.Context, id string) (*model.User, error)

	// UpdateStatus refreshes presence bookkeeping on sign-in.
	UpdateStatus(ctx context.Context, id string, status model.Status, lastSeenAt time.Time) error
}

// UpdateProfileParams defines the optional profile fields to update.
// Only the fields that are not nil will be updated.
type UpdateProfileParams struct {
	Phone        *string
	Role         *model.Role
	BusinessRole *string
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.db.Collection(userCollection).InsertOne(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": id})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) UpdateProfile(
	ctx context.Context,
	id string,
	params UpdateProfileParams,
) (*model.User, error) {
	updateMap := bson.M{}
	if params.Phone != nil {
		updateMap["phone"] = *params.Phone
	}
	if params.Role != nil {
		updateMap["role"] = *params.Role
	}
	if params.BusinessRole != nil {
		updateMap["business_role"] = *params.BusinessRole
	}

	if len(updateMap) == 0 {
		return r.GetUser(ctx, id)
	}

	updateMap["updated_at"] = time.Now()

	return r.findOneAndUpdate(ctx, id, bson.M{"$set": updateMap})
}

func (r *userMongoRepository) SetVerificationCode(
	ctx context.Context,
	id, code string,
	expiresAt time.Time,
) (*model.User, error) {
	update := bson.M{
		"$set": bson.M{
			"verification_code":            code,
			"verification_code_expires_at": expiresAt,
			"updated_at":                   time.Now(),
		},
	}

	return r.findOneAndUpdate(ctx, id, update)
}

func (r *userMongoRepository) MarkVerified(ctx context.Context, id string) (*model.User, error) {
	update := bson.M{
		"$set": bson.M{
			"verified":                     true,
			"verification_code":            nil,
			"verification_code_expires_at": nil,
			"updated_at":                   time.Now(),
		},
	}

	return r.findOneAndUpdate(ctx, id, update)
}

func (r *userMongoRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status model.Status,
	lastSeenAt time.Time,
) error {
	_, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":       status,
			"last_seen_at": lastSeenAt,
		}},
	)
	return err
}

func (r *userMongoRepository) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
