package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

type OpenAI struct {
	client    openai.Client
	maxTokens int64
}

func NewOpenAI(apiKey, baseURL string, maxTokens int) *OpenAI {
	opts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAI{client: openai.NewClient(opts...), maxTokens: int64(maxTokens)}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	items := make(oresponses.ResponseInputParam, 0, len(req.History)+1)
	for _, t := range req.History {
		role := oresponses.EasyInputMessageRoleUser
		if t.Role == RoleAssistant {
			role = oresponses.EasyInputMessageRoleAssistant
		}
		items = append(items, oresponses.ResponseInputItemParamOfMessage(t.Text, role))
	}
	items = append(items, oresponses.ResponseInputItemParamOfMessage(req.Prompt, oresponses.EasyInputMessageRoleUser))

	params := oresponses.ResponseNewParams{
		Model:           oshared.ResponsesModel(strings.TrimSpace(req.Model)),
		MaxOutputTokens: openai.Int(o.maxTokens),
		Input:           oresponses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.Instructions = openai.String(system)
	}
	if req.JSON {
		obj := oshared.NewResponseFormatJSONObjectParam()
		params.Text = oresponses.ResponseTextConfigParam{
			Format: oresponses.ResponseFormatTextConfigUnionParam{OfJSONObject: &obj},
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	txt := resp.OutputText()
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

func (o *OpenAI) Close() error { return nil }
