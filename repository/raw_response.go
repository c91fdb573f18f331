package repository

import (
	"cardhub/dto/model"
	"cardhub/helper"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RawResponseRepository keeps issuer responses in MongoDB for audit.
type RawResponseRepository struct {
	collection *mongo.Collection
}

func NewRawResponseRepository(collection *mongo.Collection) *RawResponseRepository {
	return &RawResponseRepository{collection: collection}
}

func (r *RawResponseRepository) Record(ctx context.Context, issuer, code string, succeeded bool, response map[string]interface{}) error {
	record := model.RawActivationRecord{
		Code:       code,
		Issuer:     issuer,
		Succeeded:  succeeded,
		Response:   helper.Redact(response),
		RecordedAt: time.Now().UnixMilli(),
	}
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to record raw response for %s: %w", code, err)
	}
	return nil
}

func (r *RawResponseRepository) ListByCode(ctx context.Context, code string, limit int64) ([]model.RawActivationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"code": code}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.RawActivationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
