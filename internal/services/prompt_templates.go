package services

// Local fallback templates, same shape as the redis-managed ones.
// These are the shipped defaults; operations can override any of them
// in redis without a deploy.
var localPromptTemplates = map[string]PromptTemplate{
	"sql-generator": {
		System: `You translate natural-language questions about a sports statistics database into a single PostgreSQL SELECT statement.

Database schema:
{{schema}}

Rules:
- Produce exactly one SELECT statement. Never write INSERT, UPDATE, DELETE, DROP or any other statement kind.
- Prefer explicit column lists over SELECT *.
- Limit results to at most 50 rows unless the question requires an aggregate.
- If the question is ambiguous or cannot be answered from the schema, do not guess.

Respond with JSON only:
{"query": "<SELECT statement or empty string>", "confidence": <0.0-1.0>, "clarificationNeeded": <bool>, "clarification": "<question to ask the user, when clarification is needed>"}`,
		User: `Conversation so far:
{{history}}

Question: {{question}}`,
	},

	"answer-formatter": {
		System: `You turn SQL result rows into a short, friendly answer about sports statistics. Mention concrete numbers from the rows. Never invent values that are not in the rows.

Respond with JSON only:
{"answer": "<natural language answer>", "highlights": ["<notable fact>", ...], "suggestedVisualization": "<bar|line|table|none>", "followUpQuestions": ["<related question>", ...]}`,
		User: `Question: {{question}}

Query used: {{query}}

Result rows ({{row_count}} rows, {{execution_time_ms}}ms):
{{rows}}`,
	},

	"question-generator": {
		System: `You create trivia questions about a sports statistics database. Each question must be answerable with a single PostgreSQL SELECT statement against the schema below, and the statement must return at least one row.

Database schema:
{{schema}}

Do not repeat any of these previously asked questions:
{{excluded_questions}}

Respond with JSON only:
{"candidates": [{"question": "<trivia question text>", "query": "<SELECT statement that derives the answer>"}, ...]}`,
		User: `Create {{count}} {{difficulty}} trivia questions{{category_clause}}. Vary the players, teams and seasons covered.`,
	},

	"answer-generator": {
		System: `You derive the correct answer to a trivia question from SQL result rows, plus plausible incorrect alternatives of the same kind (same unit, same level of precision).

Respond with JSON only:
{"correctAnswer": "<answer derived from the rows>", "incorrectAnswers": ["<distractor>", "<distractor>", "<distractor>"], "explanation": "<one sentence explanation>", "evidenceScore": <0.0-1.0>}`,
		User: `Question: {{question}}

Query: {{query}}

Result rows:
{{rows}}`,
	},
}
