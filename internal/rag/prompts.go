package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/luisromp/personarag/internal/session"
)

// condensePrompts rewrite a follow-up question into a standalone query,
// per language. The model must return only the rewritten question.
var condensePrompts = map[string]string{
	"en": `Given the conversation history and the latest user question, rewrite the
question to be a standalone query that can be understood without the history.

Follow these rules strictly:
1. Resolve pronouns: replace pronouns (he, she, it, they, his, her, there, etc.)
   with the specific names or entities they refer to from the history.
2. Preserve context: keep important details like dates, numbers, and specific names.
3. No preamble: return ONLY the rewritten question.
4. Same language: the rewritten question must be in English.
5. No change if clear: if the question is already self-contained, return it exactly as is.

Conversation history:
%s

Latest question:
%s

Rewritten question:`,
	"es": `Dada la historia de la conversación y la última pregunta del usuario,
reescribe la pregunta para que sea una consulta independiente que se pueda
entender sin el historial.

Sigue estas reglas estrictamente:
1. Resolver pronombres: reemplaza los pronombres (él, ella, eso, ellos, su,
   allí, etc.) con los nombres o entidades específicos del historial.
2. Preservar contexto: mantén detalles importantes como fechas, números y nombres.
3. Sin preámbulo: devuelve SOLO la pregunta reescrita.
4. Mismo idioma: la pregunta reescrita debe estar en español.
5. Sin cambios si es clara: si la pregunta ya se entiende por sí sola,
   devuélvela exactamente como está.

Historial de conversación:
%s

Última pregunta:
%s

Pregunta reescrita:`,
}

// answerPrompts are the per-language system instructions. The assistant
// answers as the knowledge-base owner, strictly from the supplied
// context, and declines when the context is insufficient.
var answerPrompts = map[string]string{
	"en": `You are the AI version of the owner of this knowledge base. You are not
an assistant; you ARE the owner. Speak in the first person ("I", "my", "me").

Today's date is %s. If a document mentions an event dated before today,
refer to it in the past tense; if dated after today, in the future tense.

You must strictly follow these rules:
1. Source of truth: answer ONLY using the context below.
2. Unknown info: if the context does not contain the answer, say
   "I'm sorry, I do not know." Do NOT make up or hallucinate information.
3. Privacy: if a question asks for sensitive information not in the
   context, politely decline: "Sorry, I prefer not to share that."

Context:
%s`,
	"es": `Eres la versión IA del dueño de esta base de conocimiento. No eres un
asistente; ERES el dueño. Habla en primera persona ("yo", "mi", "me").

La fecha de hoy es %s. Si un documento menciona un evento con fecha anterior
a hoy, refiérete a él en pasado; si es posterior, en futuro.

Debes seguir estrictamente estas reglas:
1. Fuente de verdad: responde SOLO usando el contexto a continuación.
2. Información desconocida: si el contexto no contiene la respuesta, di
   "Lo siento, no lo sé." NO inventes ni alucines información.
3. Privacidad: si una pregunta pide información sensible que no está en el
   contexto, declina cortésmente: "Lo siento, prefiero no compartir eso."

Contexto:
%s`,
}

// noGroundingContext replaces the context block when retrieval found
// nothing above the score threshold: the model is told outright that no
// material exists so it declines instead of inventing an answer.
var noGroundingContext = map[string]string{
	"en": `(no relevant information was found in the knowledge base for this
question; you MUST say you do not know rather than guess)`,
	"es": `(no se encontró información relevante en la base de conocimiento para
esta pregunta; DEBES decir que no lo sabes en lugar de adivinar)`,
}

// promptFor picks the per-language template, falling back to English.
func promptFor(prompts map[string]string, lang string) string {
	if p, ok := prompts[lang]; ok {
		return p
	}
	return prompts["en"]
}

// condensePrompt renders the standalone-question rewrite prompt.
func condensePrompt(lang string, history []session.Turn, question string) string {
	return fmt.Sprintf(promptFor(condensePrompts, lang), formatHistory(history), question)
}

// answerSystemPrompt renders the system instructions with today's date
// and the assembled context (or the no-grounding variant).
func answerSystemPrompt(lang string, now time.Time, context string, grounded bool) string {
	if !grounded {
		context = promptFor(noGroundingContext, lang)
	}
	return fmt.Sprintf(promptFor(answerPrompts, lang), now.Format("2006-01-02"), context)
}

// formatHistory renders turns as "User:"/"Assistant:" lines for the
// condensation prompt.
func formatHistory(history []session.Turn) string {
	var sb strings.Builder
	for _, t := range history {
		prefix := "User"
		if t.Role == session.RoleAssistant {
			prefix = "Assistant"
		}
		sb.WriteString(prefix)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
