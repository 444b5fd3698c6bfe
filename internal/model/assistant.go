package model

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type AssistantMessage struct {
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// AssistantRequest is a student question to the study assistant
type AssistantRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	QuestionID     string `json:"question_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	UserQuestion   string `json:"user_question"`
}

type AssistantResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type Conversation struct {
	ID         string             `json:"conversation_id" bson:"_id"`
	UserID     string             `json:"user_id,omitempty" bson:"userId,omitempty"`
	QuestionID string             `json:"question_id,omitempty" bson:"questionId,omitempty"`
	SessionID  string             `json:"session_id,omitempty" bson:"sessionId,omitempty"`
	Messages   []AssistantMessage `json:"messages" bson:"messages"`
	CreatedAt  time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updatedAt"`
}
