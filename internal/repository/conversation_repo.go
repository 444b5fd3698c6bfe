package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

type ConversationRepo interface {
	// Save inserts or replaces the whole conversation
	Save(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
}

type conversationRepo struct {
	collection *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepo{
		collection: db.Collection(conversationsCollection),
	}
}

func (r *conversationRepo) Save(ctx context.Context, conv *model.Conversation) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": conv.ID}, conv, options.Replace().SetUpsert(true))
	return err
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}
