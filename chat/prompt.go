package chat

import "fmt"

// promptTemplate is the fixed prompt skeleton in the chat-template format
// the generation backend was trained on. Slots: extra guidance, formatted
// history, retrieved context, question.
const promptTemplate = `<|im_start|>system
Answer the question briefly and accurately, using only the information in the documents below and the conversation history. Do not use knowledge from outside the documents. If the question asks for a list, give the specific items. If the documents contain nothing relevant, answer "I don't know". Answer only the current question; do not generate further questions or content.%s
**Conversation history:**
%s
**Information from the documents:**
%s
<|im_end|>
<|im_start|>user
%s
<|im_end|>
<|im_start|>assistant
`

// assemblePrompt renders the full prompt. Guidance, when present, extends
// the system block on its own line.
func assemblePrompt(guidance, historyText, contextText, question string) string {
	if guidance != "" {
		guidance = "\n" + guidance
	}
	return fmt.Sprintf(promptTemplate, guidance, historyText, contextText, question)
}

// skeletonCost measures the template with every slot empty. The slots
// themselves are costed separately by the allocator.
func (s *Service) skeletonCost() int {
	return s.estimate(assemblePrompt("", "", "", ""))
}
