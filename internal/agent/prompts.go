package agent

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// ApologyMessage 在回答阶段没有可用输出时返回给用户。
const ApologyMessage = "I apologise, but I couldn't generate a response at this time."

// NoExternalContext 为网页检索不可用时传给回答阶段的标记。
const NoExternalContext = "No external context available."

const contextualizeSystemPrompt = `You are a helpful assistant with the knowledge base of langchain documentation. ` +
	`Given a chat history and the latest user question which might reference context in the chat history, ` +
	`formulate a standalone question which can be understood without the chat history. ` +
	`Do NOT answer the question, just reformulate it if needed and otherwise return it as is. ` +
	`Resolve every pronoun and ellipsis against the chat history. ` +
	`-> Return **only** the reformulated question (no explanations, no answers)`

const routeSystemPrompt = `You route questions for an assistant whose knowledge base is the LangChain documentation.
Call the {tool} tool exactly once with one of these routes:
- "rag": the question is about LangChain, LangGraph, LangSmith or their APIs and should be answered from the documentation.
- "web": the question needs fresh or external information (news, weather, prices, recent releases, other products).
- "answer": small talk, general knowledge or reasoning that needs no lookup.
Do not answer the question yourself.`

const judgeSystemPrompt = `You check whether retrieved documentation is enough to answer a question confidently.
Call the {tool} tool exactly once. Set sufficient to true only if the context below contains the facts needed for a complete, correct answer.

Context:
{context}`

const answerWithContextPrompt = `You are a helpful assistant with the knowledge base of langchain documentation.
Answer the user's latest question using the context below. Prefer facts from the context and cite the source title or URL when you use it.
If the context does not cover the question, say so briefly and answer from general knowledge.

Context:
{context}`

const directAnswerPrompt = `You are a helpful assistant with the knowledge base of langchain documentation.
Answer the user's latest question from your own knowledge. Be concise and accurate.`

// newContextualizeTemplate: system + 历史；本轮问题由调用方直接追加，避免问题文本中的花括号被当作模板变量。
func newContextualizeTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(contextualizeSystemPrompt),
		schema.MessagesPlaceholder("chat_history", true),
	)
}

func newRouteTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(routeSystemPrompt),
	)
}

func newJudgeTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(judgeSystemPrompt),
	)
}

// newAnswerTemplate 在有上下文时注入 {context}，消息序列以改写后的问题结尾。
func newAnswerTemplate(withContext bool) prompt.ChatTemplate {
	system := directAnswerPrompt
	if withContext {
		system = answerWithContextPrompt
	}
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.MessagesPlaceholder("messages", false),
	)
}
