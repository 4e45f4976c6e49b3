package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const judgeToolName = "judge_context"

var judgeTool = &schema.ToolInfo{
	Name: judgeToolName,
	Desc: "Report whether the retrieved context is sufficient to answer the question.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"sufficient": {
			Type:     schema.Boolean,
			Desc:     "true if the context answers the question confidently",
			Required: true,
		},
	}),
}

// Judge 判断检索结果是否足以回答问题。
type Judge struct {
	cm          model.ToolCallingChatModel
	temperature float32
	tpl         prompt.ChatTemplate
}

func NewJudge(cm model.ToolCallingChatModel, temperature float32) *Judge {
	return &Judge{cm: cm, temperature: temperature, tpl: newJudgeTemplate()}
}

func (j *Judge) Judge(ctx context.Context, question, retrieved, modelID string) (SufficiencyJudgment, error) {
	msgs, err := j.tpl.Format(ctx, map[string]any{
		"tool":    judgeToolName,
		"context": retrieved,
	})
	if err != nil {
		return SufficiencyJudgment{}, fmt.Errorf("format judge template failed: %w", err)
	}
	msgs = append(msgs, schema.UserMessage(question))

	raw, err := generateStructured(ctx, j.cm, judgeTool, msgs, callOptions(j.temperature, modelID)...)
	if err != nil {
		return SufficiencyJudgment{}, fmt.Errorf("judge generate failed: %w", err)
	}
	return DecodeSufficiency(raw)
}
