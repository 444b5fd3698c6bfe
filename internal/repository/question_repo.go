package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// QuestionRepo stores questions attached to sessions
type QuestionRepo interface {
	CreateMany(ctx context.Context, questions []*model.SessionQuestion) error
	GetByID(ctx context.Context, id string) (*model.SessionQuestion, error)
	GetBySession(ctx context.Context, sessionID string) ([]*model.SessionQuestion, error)

	// SaveAnswer returns false when no question has the id
	SaveAnswer(ctx context.Context, id, answer string) (bool, error)
	UpdateCompletion(ctx context.Context, id string, completed bool, pointsEarned int) error
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection(questionsCollection),
	}
}

func (r *questionRepo) CreateMany(ctx context.Context, questions []*model.SessionQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	docs := make([]interface{}, len(questions))
	for i, q := range questions {
		docs[i] = q
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.SessionQuestion, error) {
	var q model.SessionQuestion
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) GetBySession(ctx context.Context, sessionID string) ([]*model.SessionQuestion, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.SessionQuestion
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) SaveAnswer(ctx context.Context, id, answer string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"studentAnswer": answer},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *questionRepo) UpdateCompletion(ctx context.Context, id string, completed bool, pointsEarned int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"isCompleted":  completed,
			"pointsEarned": pointsEarned,
		},
	})
	return err
}
