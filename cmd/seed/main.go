// Command seed inserts a demo student with one practice session so the API
// can be explored without running the pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andrewy1n/platypus-academy/internal/config"
	"github.com/andrewy1n/platypus-academy/internal/logger"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		slog.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepo(db)
	user, err := userRepo.GetByEmail(ctx, "demo@platypus.academy")
	if err != nil {
		slog.Error("failed to look up demo user", "error", err)
		os.Exit(1)
	}
	if user == nil {
		user = &model.User{
			ID:         uuid.New().String(),
			Email:      "demo@platypus.academy",
			SessionIDs: []string{},
			CreatedAt:  time.Now().UTC(),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			slog.Error("failed to create demo user", "error", err)
			os.Exit(1)
		}
	}

	sessionID := uuid.New().String()
	questions := demoQuestions(sessionID)
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:           sessionID,
		UserID:       user.ID,
		Subject:      "Biology",
		Topics:       []string{"cells", "photosynthesis"},
		QuestionIDs:  ids,
		NumQuestions: len(ids),
		Status:       model.SessionInProgress,
		Mode:         model.ModePractice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repository.NewQuestionRepo(db).CreateMany(ctx, questions); err != nil {
		slog.Error("failed to insert questions", "error", err)
		os.Exit(1)
	}
	if err := repository.NewSessionRepo(db).Create(ctx, session); err != nil {
		slog.Error("failed to insert session", "error", err)
		os.Exit(1)
	}
	if err := userRepo.AddSession(ctx, user.ID, sessionID); err != nil {
		slog.Error("failed to link session", "error", err)
		os.Exit(1)
	}

	slog.Info("seeded demo data", "user_id", user.ID, "session_id", sessionID, "questions", len(questions))
}

func demoQuestions(sessionID string) []*model.SessionQuestion {
	qs := []model.Question{
		{
			Text: "Which organelle is known as the powerhouse of the cell?",
			Data: model.QuestionData{Variant: model.MultipleChoice{
				Choices: []string{"Nucleus", "Mitochondria", "Ribosome", "Golgi apparatus"},
				Answer:  "Mitochondria",
			}},
			Difficulty: model.DifficultyEasy,
		},
		{
			Text:       "Plant cells have a cell wall.",
			Data:       model.QuestionData{Variant: model.TrueFalse{Answer: true}},
			Difficulty: model.DifficultyEasy,
		},
		{
			Text:       "Photosynthesis takes place in the ____ of plant cells.",
			Data:       model.QuestionData{Variant: model.FillBlank{Answer: "chloroplasts"}},
			Difficulty: model.DifficultyMedium,
		},
		{
			Text: "Order the stages of mitosis.",
			Data: model.QuestionData{Variant: model.Ordering{
				Choices: []string{"Metaphase", "Prophase", "Telophase", "Anaphase"},
				Answer:  []string{"Prophase", "Metaphase", "Anaphase", "Telophase"},
			}},
			Difficulty: model.DifficultyMedium,
		},
		{
			Text: "Explain why the light-dependent reactions need water.",
			Data: model.QuestionData{Variant: model.FreeResponse{
				Answer: "Water is split to replace electrons lost by chlorophyll, releasing oxygen.",
				Points: 3,
				Rubric: "Mentions water splitting, electron replacement and oxygen release.",
			}},
			Difficulty: model.DifficultyHard,
		},
	}

	out := make([]*model.SessionQuestion, len(qs))
	for i, q := range qs {
		q.Subject = "Biology"
		out[i] = &model.SessionQuestion{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Question:  q,
			Points:    service.DefaultQuestionPoints,
		}
	}
	return out
}
