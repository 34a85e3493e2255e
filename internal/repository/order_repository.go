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

var ErrNotFound = errors.New("orden no encontrada")

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// EnsureIndexes crea el índice único sobre la referencia externa.
// Dos órdenes nunca pueden compartir order_id (gateway o COD).
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	o.UpdatedAt = now

	res, err := m.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	cur, err := m.col.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// MarkPaid transiciona la orden a Processing/paid en un único update condicional.
// El filtro exige payment_status == pending: si dos verificaciones concurrentes
// llegan con firma válida, solo una matchea y acredita; la otra recibe (nil, nil)
// y debe consultar el estado ya persistido.
func (m *MongoOrderRepository) MarkPaid(ctx context.Context, orderID, paymentRef string) (*model.Order, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"order_id":       orderID,
		"payment_status": model.PaymentPending,
	}
	update := bson.M{
		"$set": bson.M{
			"status":         model.StatusProcessing,
			"payment_status": model.PaymentPaid,
			"payment_id":     paymentRef,
			"paid_at":        now,
			"credited":       true,
			"updated_at":     now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Order
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		// O la orden no existe, o ya salió de pending. Lo decide el caller.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkFailed deja la orden en Cancelled/failed tras una verificación inválida.
func (m *MongoOrderRepository) MarkFailed(ctx context.Context, orderID string) error {
	update := bson.M{
		"$set": bson.M{
			"status":         model.StatusCancelled,
			"payment_status": model.PaymentFailed,
			"updated_at":     time.Now().UTC(),
		},
	}
	r, err := m.col.UpdateOne(ctx, bson.M{"order_id": orderID}, update)
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus cambia el estado logístico (camino admin).
func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		},
	}
	r, err := m.col.UpdateOne(ctx, bson.M{"order_id": orderID}, update)
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCredited setea el flag credited solo si todavía no estaba (check-and-set).
// Devuelve true si este caller ganó el derecho a acreditar los totales.
func (m *MongoOrderRepository) MarkCredited(ctx context.Context, orderID string) (bool, error) {
	filter := bson.M{
		"order_id": orderID,
		"credited": false,
	}
	update := bson.M{
		"$set": bson.M{
			"credited":   true,
			"updated_at": time.Now().UTC(),
		},
	}
	r, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return r.ModifiedCount == 1, nil
}

func (m *MongoOrderRepository) Delete(ctx context.Context, orderID string) error {
	r, err := m.col.DeleteOne(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return err
	}
	if r.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
