package llm

import (
	"context"
)

type Question struct {
	// System 系统提示词, 可为空
	System  string
	Content string
}

type Answer struct {
	Content     string
	InputToken  int
	OutputToken int
}

type Service interface {
	AskOnce(ctx context.Context, q Question) (Answer, error)
}
