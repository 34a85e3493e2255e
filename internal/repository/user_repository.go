package repository

import (
	"context"
	"errors"
	"time"

	"ecommerce-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrUserNotFound = errors.New("usuario no encontrado")
	ErrEmailTaken   = errors.New("el email ya está registrado")
)

type MongoUserRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{db: db, col: db.Collection("users")}
}

func (m *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := m.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var res model.User
	err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	return &res, err
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var res model.User
	err = m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	return &res, err
}

func (m *MongoUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}
	_, err = m.col.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"last_login": time.Now().UTC()},
	})
	return err
}

// ApplyOrderCompletion incrementa los totales del usuario con $inc.
// Nunca read-modify-write: dos órdenes concurrentes del mismo usuario
// se acumulan bien porque el incremento es atómico en el store.
func (m *MongoUserRepository) ApplyOrderCompletion(ctx context.Context, userID string, grandTotal float64) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrUserNotFound
	}

	r, err := m.col.UpdateByID(ctx, oid, bson.M{
		"$inc": bson.M{
			"total_orders": 1,
			"total_spent":  grandTotal,
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecomputeAggregates reconstruye los totales desde el set completo de órdenes
// acreditadas. Operación de auditoría/reconciliación, no del camino caliente.
func (m *MongoUserRepository) RecomputeAggregates(ctx context.Context, userID string) (int, float64, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, 0, ErrUserNotFound
	}

	orders := m.db.Collection("orders")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "credited": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"total_orders": bson.M{"$sum": 1},
			"total_spent":  bson.M{"$sum": "$pricing.grand_total"},
		}}},
	}

	cur, err := orders.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var agg struct {
		TotalOrders int     `bson:"total_orders"`
		TotalSpent  float64 `bson:"total_spent"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&agg); err != nil {
			return 0, 0, err
		}
	}

	r, err := m.col.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{
			"total_orders": agg.TotalOrders,
			"total_spent":  agg.TotalSpent,
			"updated_at":   time.Now().UTC(),
		},
	})
	if err != nil {
		return 0, 0, err
	}
	if r.MatchedCount == 0 {
		return 0, 0, ErrUserNotFound
	}
	return agg.TotalOrders, agg.TotalSpent, nil
}
