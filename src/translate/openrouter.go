package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sstranslate/src/llm"
)

// OpenRouter translates with a chat model instead of a dedicated MT service.
type OpenRouter struct {
	client *llm.Client
}

func NewOpenRouter(client *llm.Client) *OpenRouter {
	return &OpenRouter{client: client}
}

func (o *OpenRouter) Name() string { return "OpenRouter" }

func (o *OpenRouter) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, nil
	}
	text, err := o.client.Translate(ctx, req.Text, req.SourceLang, req.TargetLang)
	if errors.Is(err, llm.ErrUnauthorized) {
		return Result{}, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}
