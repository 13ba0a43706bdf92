package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return the
	// embedded default or an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnswerSystem is the system instruction for policy answers.
	// No placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser carries the retrieved context and the question.
	// Placeholders: %s (context), %s (question).
	PromptAnswerUser = "answer_user"

	// PromptSummary turns an answer into key points, caveats and advice.
	// Placeholder: %s (answer text).
	PromptSummary = "summary"

	// PromptRecommendSystem is the system instruction for ranking insurers.
	// Placeholder: %d (number of insurers to rank).
	PromptRecommendSystem = "recommend_system"

	// PromptRecommendUser carries the question/answer dossier.
	// Placeholder: %s (dossier).
	PromptRecommendUser = "recommend_user"
)
