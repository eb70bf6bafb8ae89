package subtitle

import "strings"

// Placeholder replaces recognizer output that is known not to be speech.
const Placeholder = "Тишина"

// Filter suppresses known non-speech recognizer artifacts.
type Filter struct {
	Substrings  []string
	Exact       []string
	Placeholder string
}

// ServerArtifacts are dropped by the transcription server before they reach
// the client. They are not in the default filter since "Спасибо." is also
// genuine speech; add them to filter_exact when the backend does not drop them.
var ServerArtifacts = []string{
	"Продолжение следует...",
	"Спасибо.",
}

func DefaultFilter() Filter {
	return Filter{
		Substrings:  []string{"DimaTorzok"},
		Exact:       []string{"Редактор субтитров А.Семкин Корректор А.Егорова"},
		Placeholder: Placeholder,
	}
}

// Apply returns the placeholder for an artifact and text unchanged otherwise.
func (f Filter) Apply(text string) string {
	if f.IsArtifact(text) {
		if f.Placeholder == "" {
			return Placeholder
		}
		return f.Placeholder
	}
	return text
}

func (f Filter) IsArtifact(text string) bool {
	for _, sub := range f.Substrings {
		if sub != "" && strings.Contains(text, sub) {
			return true
		}
	}
	trimmed := strings.TrimSpace(text)
	for _, exact := range f.Exact {
		if exact != "" && trimmed == exact {
			return true
		}
	}
	return false
}
