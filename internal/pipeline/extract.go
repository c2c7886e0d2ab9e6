package pipeline

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// minSourceChars is the smallest amount of text worth sending to the
// generation service, for pasted text and extracted documents alike.
const minSourceChars = 50

// ExtractPDF pulls plain text out of an in-memory PDF blob. Scanned
// (image-only) documents are a common failure mode and get their own
// outcome, distinct from a corrupt or unreadable file, so the caller
// can give actionable advice instead of a generic I/O error.
func ExtractPDF(data []byte) (text string, charCount int, err *Error) {
	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return "", 0, &Error{
			Stage:   StageExtraction,
			Code:    CodeExtractionFailed,
			Message: msgExtractionFailed(Arabic, rerr),
			Err:     rerr,
		}
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return classifyExtracted(b.String())
}

// classifyExtracted decides between a usable extraction and the two
// OCR-suspect outcomes (nothing extracted, or too little to be a real
// document).
func classifyExtracted(raw string) (string, int, *Error) {
	text := normalizeExtractedText(raw)

	if text == "" {
		return "", 0, &Error{
			Stage:   StageExtraction,
			Code:    CodeOCRSuspect,
			Message: msgScannedPDF(Arabic),
		}
	}

	count := utf8.RuneCountInString(text)
	if count < minSourceChars {
		return "", 0, &Error{
			Stage:   StageExtraction,
			Code:    CodeOCRSuspect,
			Message: msgExtractedTooShort(Arabic),
		}
	}

	return text, count, nil
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	var buf bytes.Buffer

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
