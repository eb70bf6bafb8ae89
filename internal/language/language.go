package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Code identifies a subtitle language selection.
type Code string

const (
	// Source shows the recognizer output as-is, without translation.
	Source  Code = "source"
	Russian Code = "ru"
	English Code = "en"
	Spanish Code = "es"
	Chinese Code = "zh"
)

// DefaultSource is the language the recognizer transcribes.
const DefaultSource = Russian

// Fallback is used when a selection has no transport-level mapping.
const Fallback = Russian

// Language describes one selectable option.
type Language struct {
	Code       Code
	NativeName string
}

// selectable is the UI-level set, in display order.
var selectable = []Language{
	{Code: Source, NativeName: "Оригинал"},
	{Code: Russian, NativeName: "Русский"},
	{Code: English, NativeName: "English"},
	{Code: Spanish, NativeName: "Español"},
	{Code: Chinese, NativeName: "中文"},
}

// transport-level targets the translation backend accepts
var supported = map[Code]bool{
	Russian: true,
	English: true,
	Spanish: true,
}

// List returns the selectable languages.
func List() []Language {
	result := make([]Language, len(selectable))
	copy(result, selectable)
	return result
}

// Parse validates a selection code.
func Parse(s string) (Code, error) {
	code := Code(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range selectable {
		if l.Code == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q (use source, ru, en, es or zh)", s)
}

// IsValid reports whether code is a selectable language.
func IsValid(code Code) bool {
	_, err := Parse(string(code))
	return err == nil
}

// Supported reports whether the translation backend accepts code as a target.
func Supported(code Code) bool {
	return supported[code]
}

// NeedsTranslation reports whether subtitles in selection must be translated
// from src.
func NeedsTranslation(selection, src Code) bool {
	return selection != Source && selection != src
}

// Target maps a selection to a transport-level target, falling back to
// Russian when there is no mapping.
func Target(selection Code) Code {
	if supported[selection] {
		return selection
	}
	return Fallback
}

// FullName returns the English name of a language ("Russian", "English").
func FullName(code Code) string {
	tag, err := language.Parse(string(code))
	if err != nil {
		return string(code)
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return string(code)
	}
	return name
}

// TargetName is FullName(Target(selection)).
func TargetName(selection Code) string {
	return FullName(Target(selection))
}
