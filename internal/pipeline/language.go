package pipeline

// Language selects the prompt template family and the error vocabulary
// for the remainder of a generation request. It is derived, never
// user-supplied.
type Language string

const (
	Arabic  Language = "ar"
	English Language = "en"
)

// DetectLanguage classifies text as Arabic or English by counting runes
// in the Arabic Unicode blocks against ASCII letters. Arabic wins only
// on a strict majority; ties and mixed text fall back to English. This
// is intentionally not full language identification — it only has to
// pick a template family.
func DetectLanguage(text string) Language {
	var arabic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF,
			r >= 0x0750 && r <= 0x077F,
			r >= 0x08A0 && r <= 0x08FF:
			arabic++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}
	if arabic > latin {
		return Arabic
	}
	return English
}
