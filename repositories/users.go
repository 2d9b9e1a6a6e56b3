package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/models"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

// FindByID returns one user by its object id.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateLongTermEmbedding persists a refreshed interest profile.
func (r *UserRepository) UpdateLongTermEmbedding(ctx context.Context, id primitive.ObjectID, embedding []float32) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"long_term_embedding": embedding, "updated_at": time.Now()},
	})
	return err
}

// FindActiveSince returns active users whose last_active is after since.
// Used by the batch profile refresh.
func (r *UserRepository) FindActiveSince(ctx context.Context, since time.Time) ([]models.User, error) {
	filter := bson.M{
		"is_active":   true,
		"last_active": bson.M{"$gte": since},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
