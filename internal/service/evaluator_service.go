package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andrewy1n/platypus-academy/internal/config"
	"github.com/andrewy1n/platypus-academy/internal/llm"
	"github.com/andrewy1n/platypus-academy/internal/model"
)

// EvaluatorService holds every model-backed task: raw question extraction,
// validation, free-response judging and assistant replies. Without a
// configured provider it answers with deterministic mocks.
type EvaluatorService struct {
	config *config.AIConfig
	llm    llm.Completer
	logger *slog.Logger
}

func NewEvaluatorService(cfg *config.AIConfig, completer llm.Completer) *EvaluatorService {
	if cfg == nil {
		cfg = config.DefaultAIConfig()
	}
	return &EvaluatorService{
		config: cfg,
		llm:    completer,
		logger: slog.Default().With("component", "evaluator"),
	}
}

func (s *EvaluatorService) enabled() bool {
	return s.llm != nil
}

// Extract implements ingest.Extractor
func (s *EvaluatorService) Extract(ctx context.Context, src model.Source, indexName string, chunks []string) (string, error) {
	if !s.enabled() {
		return s.mockExtract(chunks), nil
	}
	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.config.Models.Extract,
		System: extractSystemPrompt,
		Prompt: s.buildExtractPrompt(src, indexName, chunks),
		JSON:   true,
	})
	if err != nil {
		return "", err
	}
	return llm.StripCodeFences(reply), nil
}

// Validate implements pipeline.Validator. Items that do not decode into a
// known question shape are dropped and counted as invalid.
func (s *EvaluatorService) Validate(ctx context.Context, req model.PipelineRequest, payloads []model.RawPayload) (model.ValidationResult, error) {
	if !s.enabled() {
		questions := s.mockValidate(req)
		return model.ValidationResult{Questions: questions, Total: len(questions)}, nil
	}
	prompt, err := s.buildValidatePrompt(req, payloads)
	if err != nil {
		return model.ValidationResult{}, err
	}
	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.config.Models.Validate,
		System: validateSystemPrompt,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return model.ValidationResult{}, err
	}
	questions, dropped, err := decodeQuestions(llm.StripCodeFences(reply))
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("validator reply: %w", err)
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid questions", "dropped", dropped, "kept", len(questions))
	}
	res := model.ValidationResult{Total: len(questions) + dropped, Invalid: dropped}
	for i := range questions {
		if questions[i].Subject == "" {
			questions[i].Subject = req.Subject
		}
	}
	if limit := req.NumQuestionsRange.Max; limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	res.Questions = questions
	return res, nil
}

// Judge scores a free-response answer against its rubric
func (s *EvaluatorService) Judge(ctx context.Context, q model.Question, answer string) (model.Verdict, error) {
	fr, ok := q.Data.Variant.(model.FreeResponse)
	if !ok {
		return model.Verdict{}, fmt.Errorf("judge: question is %s, not free response", typeOf(q))
	}
	if !s.enabled() {
		return s.mockJudge(fr, answer), nil
	}
	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.config.Models.Judge,
		System: judgeSystemPrompt,
		Prompt: s.buildJudgePrompt(q, fr, answer),
		JSON:   true,
	})
	if err != nil {
		return model.Verdict{}, err
	}
	var v model.Verdict
	if err := json.Unmarshal([]byte(llm.StripCodeFences(reply)), &v); err != nil {
		return model.Verdict{}, fmt.Errorf("judge reply: %w", err)
	}
	if v.Score < 0 || v.Score > 1 {
		return model.Verdict{}, fmt.Errorf("judge score %v outside [0, 1]", v.Score)
	}
	return v, nil
}

// Reply answers a study question given the prior conversation
func (s *EvaluatorService) Reply(ctx context.Context, system string, history []model.AssistantMessage, prompt string) (string, error) {
	if !s.enabled() {
		return s.mockReply(prompt), nil
	}
	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:   s.config.Models.Assistant,
		System:  system,
		Prompt:  prompt,
		History: turns,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func typeOf(q model.Question) model.QuestionType {
	if q.Data.Variant == nil {
		return ""
	}
	return q.Data.Variant.Type()
}

// decodeQuestions accepts either {"questions": [...]} or a bare array
func decodeQuestions(raw string) ([]model.Question, int, error) {
	var items []json.RawMessage
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, 0, err
		}
	} else {
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return nil, 0, err
		}
		items = wrapper.Questions
	}

	questions := make([]model.Question, 0, len(items))
	dropped := 0
	for _, item := range items {
		var q model.Question
		if err := json.Unmarshal(item, &q); err != nil || q.Data.Variant == nil || strings.TrimSpace(q.Text) == "" {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, dropped, nil
}

// Prompts
const extractSystemPrompt = `You read chunks of an educational web page and find every practice question on it.
For each question return its text, any answer choices, the answer if the page gives one, and any image URL.
Return ONLY a JSON object {"questions": [...]}. If there are no questions, return {"questions": []}.`

const validateSystemPrompt = `You are a question validator. Take raw question data scraped from educational pages and turn it into
structured, validated questions.

1. Keep only questions relevant to the user's request.
2. Drop any question whose answer you cannot confirm is correct.
3. FIB (fill in the blank) questions must have the blank inside the sentence.
4. Short answer questions are answered in a single word; anything longer is a free response (fr) question.
5. Format mathematical and scientific text with unicode characters.

Return ONLY a JSON object {"questions": [...]} where each question is:
{
  "text": "question text",
  "subject": "subject",
  "topic": "topic",
  "difficulty": "easy" | "medium" | "hard",
  "source_url": "page the question came from",
  "image_url": "optional",
  "data": one of
    {"type": "mcq", "choices": ["..."], "answer": "exact choice text"}
    {"type": "tf", "answer": true}
    {"type": "numeric", "answer": 3.14}
    {"type": "fib", "answer": "word"}
    {"type": "short_answer", "answer": "word"}
    {"type": "matching", "left": ["..."], "right": ["..."], "answer": [["left", "right"]]}
    {"type": "ordering", "choices": ["..."], "answer": ["first", "second"]}
    {"type": "fr", "answer": "model answer", "points": 5, "rubric": "what earns credit"}
}`

const judgeSystemPrompt = `You grade free response answers against a rubric and a model answer.
Return ONLY a JSON object {"score": number between 0 and 1, "explanation": "short feedback for the student"}.
A score of 0 means no credit; 1 means full credit.`

func (s *EvaluatorService) buildExtractPrompt(src model.Source, indexName string, chunks []string) string {
	return fmt.Sprintf(`Find all questions and their corresponding images and answers (if they exist) for index: %s
Website title: %s
Website URL: %s
Website snippet: %s

Page chunks:
%s`, indexName, src.Title, src.URL, src.Snippet, strings.Join(chunks, "\n---\n"))
}

func (s *EvaluatorService) buildValidatePrompt(req model.PipelineRequest, payloads []model.RawPayload) (string, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return "", err
	}
	instructions := ""
	if req.SpecialInstructions != "" {
		instructions = "\nSpecial instructions: " + req.SpecialInstructions
	}
	return fmt.Sprintf(`User initial query: %s
Mode: %s%s

Raw Questions Data:
%s

Return between %d and %d questions.`, reqJSON, req.Mode, instructions, raw, req.NumQuestionsRange.Min, req.NumQuestionsRange.Max), nil
}

func (s *EvaluatorService) buildJudgePrompt(q model.Question, fr model.FreeResponse, answer string) string {
	return fmt.Sprintf(`Question: %s
Rubric: %s
Model answer: %s
Points available: %d

Student answer: %s`, q.Text, fr.Rubric, fr.Answer, fr.Points, answer)
}

// Mock implementations
func (s *EvaluatorService) mockExtract(chunks []string) string {
	items := make([]map[string]string, 0, len(chunks))
	for _, c := range chunks {
		items = append(items, map[string]string{"question": c})
	}
	data, _ := json.Marshal(map[string]interface{}{"questions": items})
	return string(data)
}

func (s *EvaluatorService) mockValidate(req model.PipelineRequest) []model.Question {
	topic := req.Subject
	if len(req.Topics) > 0 {
		topic = req.Topics[0]
	}
	pool := []model.Question{
		{
			Data: model.QuestionData{Variant: model.MultipleChoice{Choices: []string{"A", "B", "C", "D"}, Answer: "A"}},
			Text: fmt.Sprintf("Which option best describes %s?", topic),
		},
		{
			Data: model.QuestionData{Variant: model.TrueFalse{Answer: true}},
			Text: fmt.Sprintf("%s is part of %s.", topic, req.Subject),
		},
		{
			Data: model.QuestionData{Variant: model.Numeric{Answer: 4}},
			Text: "What is 2 + 2?",
		},
		{
			Data: model.QuestionData{Variant: model.ShortAnswer{Answer: topic}},
			Text: "Name the topic of this session in one word.",
		},
	}
	n := req.NumQuestionsRange.Max
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	out := make([]model.Question, n)
	for i := range out {
		q := pool[i]
		q.Subject = req.Subject
		q.Topic = topic
		q.Difficulty = model.DifficultyEasy
		out[i] = q
	}
	return out
}

func (s *EvaluatorService) mockJudge(fr model.FreeResponse, answer string) model.Verdict {
	wordCount := len(strings.Fields(answer))
	score := float64(wordCount) / 50.0
	if score > 1.0 {
		score = 1.0
	}
	return model.Verdict{
		Score:       score,
		Explanation: "Mock evaluation based on response length.",
	}
}

func (s *EvaluatorService) mockReply(prompt string) string {
	return "I can't reach the tutoring model right now. Try breaking the problem into smaller steps and review the related section: " + firstLine(prompt)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
