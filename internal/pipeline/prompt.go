package pipeline

import "fmt"

// Kind selects which artifact a generation request produces.
type Kind string

const (
	KindFlashcards Kind = "flashcards"
	KindQuiz       Kind = "quiz"
)

// Prompt is the system/user instruction pair sent to the generation
// service. Both parts are fixed per kind and language; no runtime
// language mixing happens within a single request.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt produces the instruction pair for one request. Every
// template embeds the same contract: use only the source text, emit a
// literal "not stated in the text" marker instead of inventing content,
// and return raw JSON with no surrounding prose or fencing.
func BuildPrompt(kind Kind, lang Language, text string, count int) Prompt {
	if kind == KindQuiz {
		return buildQuizPrompt(lang, text, count)
	}
	return buildFlashcardPrompt(lang, text, count)
}

func buildFlashcardPrompt(lang Language, text string, count int) Prompt {
	if lang == Arabic {
		return Prompt{
			System: `أنت مساعد تعليمي متخصص في إنشاء بطاقات تعليمية.
قواعد مهمة:
1. استخدم فقط المعلومات الموجودة في النص المقدم
2. إذا لم تكن المعلومة موجودة في النص، اكتب "غير مذكور في النص"
3. اجعل الأسئلة واضحة ومباشرة
4. اجعل الإجابات موجزة ودقيقة
5. أرجع JSON فقط بدون أي نص إضافي`,
			User: fmt.Sprintf(`أنشئ %d بطاقة تعليمية من النص التالي.

النص:
%s

أرجع JSON بالتنسيق التالي فقط:
{"flashcards": [{"question": "السؤال", "answer": "الإجابة"}]}`, count, text),
		}
	}

	return Prompt{
		System: `You are an educational assistant specialized in creating flashcards.
Important rules:
1. Use ONLY information from the provided text
2. If information is not stated in the text, write "Not stated in the text"
3. Make questions clear and direct
4. Keep answers concise and accurate
5. Return JSON only without any additional text`,
		User: fmt.Sprintf(`Create %d flashcards from the following text.

Text:
%s

Return JSON in this format only:
{"flashcards": [{"question": "Question here", "answer": "Answer here"}]}`, count, text),
	}
}

func buildQuizPrompt(lang Language, text string, count int) Prompt {
	if lang == Arabic {
		return Prompt{
			System: `أنت مساعد تعليمي متخصص في إنشاء أسئلة اختبار متعددة الخيارات.
قواعد مهمة:
1. استخدم فقط المعلومات الموجودة في النص المقدم
2. كل سؤال يجب أن يحتوي على 4 خيارات بالضبط
3. إجابة صحيحة واحدة فقط لكل سؤال
4. اكتب شرحاً لكل خيار يوضح لماذا هو صحيح أو خاطئ
5. إذا لم تكن المعلومة موجودة في النص، اكتب "غير مذكور في النص"
6. أرجع JSON فقط بدون أي نص إضافي

تنسيق الشرح:
أ) شرح الخيار الأول
ب) شرح الخيار الثاني
ج) شرح الخيار الثالث
د) شرح الخيار الرابع`,
			User: fmt.Sprintf(`أنشئ %d سؤال اختبار متعدد الخيارات من النص التالي.

النص:
%s

أرجع JSON بالتنسيق التالي فقط:
{"questions": [{"question": "السؤال", "options": ["خيار1", "خيار2", "خيار3", "خيار4"], "correctIndex": 0, "explanation": "أ) شرح... ب) شرح... ج) شرح... د) شرح..."}]}`, count, text),
		}
	}

	return Prompt{
		System: `You are an educational assistant specialized in creating multiple choice quiz questions.
Important rules:
1. Use ONLY information from the provided text
2. Each question must have exactly 4 options
3. Only one correct answer per question
4. Write an explanation for each option explaining why it's correct or incorrect
5. If information is not stated in the text, write "Not stated in the text"
6. Return JSON only without any additional text

Explanation format:
A) Explanation for first option
B) Explanation for second option
C) Explanation for third option
D) Explanation for fourth option`,
		User: fmt.Sprintf(`Create %d multiple choice quiz questions from the following text.

Text:
%s

Return JSON in this format only:
{"questions": [{"question": "Question here", "options": ["option1", "option2", "option3", "option4"], "correctIndex": 0, "explanation": "A) explanation... B) explanation... C) explanation... D) explanation..."}]}`, count, text),
	}
}
