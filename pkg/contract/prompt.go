package contract

// Prompt: 不透明载荷，由 PromptBuilder 与 LLMClient 配对解释。
type Prompt any

// Message: 最小会话消息形状。
type Message struct {
	Role    string
	Content string
}

// TextPrompt: 纯文本载荷，按单条 user 消息发送。
type TextPrompt string

// ChatPrompt: 会话型载荷（system + user，单轮）。
type ChatPrompt []Message

// 会话角色。
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// TokenEstimator: 文本→token 的近似估算函数。
type TokenEstimator func(s string) int

// Split 拆出 system 指令与其余消息；多条 system 以换行拼接。
func (cp ChatPrompt) Split() (system string, rest []Message) {
	for _, m := range cp {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
