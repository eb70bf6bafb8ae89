package backend

import "fmt"

// BuildTranslationPrompt generates the system prompt for subtitle translation
func BuildTranslationPrompt(sourceLang, targetLang string) string {
	prompt := fmt.Sprintf("You translate live meeting subtitles from %s to %s.\n\n", sourceLang, targetLang)
	prompt += "Rules:\n"
	prompt += "- Output ONLY the translated text, nothing else\n"
	prompt += "- Keep names, numbers and technical terms intact\n"
	prompt += "- Do not add explanations or quotes\n"
	prompt += "- If the input is already in the target language, return it as-is\n"
	return prompt
}

// BuildSummaryPrompt generates the system prompt for transcript summarization
func BuildSummaryPrompt() string {
	prompt := "You summarize a live meeting transcript.\n\n"
	prompt += "Rules:\n"
	prompt += "- Write a short summary (at most 3 sentences) of what has been discussed so far\n"
	prompt += "- Use the same language as the transcript\n"
	prompt += "- Ignore silence markers and recognition noise\n"
	prompt += "- Output ONLY the summary, nothing else\n"
	return prompt
}
