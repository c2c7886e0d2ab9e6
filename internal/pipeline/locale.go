package pipeline

import "fmt"

// User-facing strings in both product languages. The product is
// Arabic-first: document errors happen before any text exists to run
// the detector on, so they default to Arabic. Everything after
// detection uses the request's detected language.

func msgTextTooShort(lang Language) string {
	if lang == Arabic {
		return "يرجى إدخال نص لا يقل عن 50 حرفاً."
	}
	return "Please enter at least 50 characters of text."
}

func msgDocumentRequired(lang Language) string {
	if lang == Arabic {
		return "يرجى رفع ملف PDF."
	}
	return "Please upload a PDF file."
}

func msgBadRequest(lang Language) string {
	if lang == Arabic {
		return "طلب غير صالح."
	}
	return "Invalid request."
}

func msgScannedPDF(lang Language) string {
	if lang == Arabic {
		return "لا يمكن استخراج نص من هذا الملف. يبدو أنه ملف PDF ممسوح ضوئياً (صور). يرجى استخدام ملف PDF يحتوي على نص قابل للنسخ."
	}
	return "No text could be extracted from this file. It appears to be a scanned (image-only) PDF. Please use a PDF with selectable text."
}

func msgExtractedTooShort(lang Language) string {
	if lang == Arabic {
		return "النص المستخرج قصير جداً (أقل من 50 حرف). قد يكون الملف ممسوحاً ضوئياً أو تالفاً. يرجى استخدام ملف PDF آخر."
	}
	return "The extracted text is too short (under 50 characters). The file may be scanned or damaged. Please try a different PDF."
}

func msgExtractionFailed(lang Language, err error) string {
	if lang == Arabic {
		return fmt.Sprintf("خطأ في قراءة الملف: %s", err)
	}
	return fmt.Sprintf("Failed to read the file: %s", err)
}

func msgServiceError(lang Language, err error) string {
	if lang == Arabic {
		return fmt.Sprintf("خطأ في الاتصال بالخدمة: %s", err)
	}
	return fmt.Sprintf("Service error: %s", err)
}

func msgMalformedResponse(lang Language, err error) string {
	if lang == Arabic {
		return fmt.Sprintf("خطأ في تحليل الرد: %s", err)
	}
	return fmt.Sprintf("JSON parsing error: %s", err)
}

func msgSchemaViolation(lang Language, detail string) string {
	if lang == Arabic {
		return fmt.Sprintf("بنية الرد غير صالحة: %s", detail)
	}
	return fmt.Sprintf("Invalid response structure: %s", detail)
}

func msgPersistenceFailed(lang Language) string {
	if lang == Arabic {
		return "تعذر حفظ المجموعة. يرجى المحاولة مرة أخرى."
	}
	return "The study set could not be saved. Please try again."
}

// MsgForbidden is the authorization failure shown when a non-owner
// requests a non-shared study set.
func MsgForbidden(lang Language) string {
	if lang == Arabic {
		return "ليس لديك صلاحية لعرض هذه المجموعة."
	}
	return "You do not have permission to view this study set."
}

// UntitledPlaceholder stands in for an empty title in summary views.
func UntitledPlaceholder(lang Language) string {
	if lang == Arabic {
		return "بدون عنوان"
	}
	return "Untitled"
}
