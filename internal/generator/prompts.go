package generator

// Prompt templates keyed by content shape and difficulty tier. All of
// them demand strict JSON back with question/answer/evidence keys;
// evidence counts and the cross-session threshold are injected per
// campaign configuration.

const systemConversational = "You are a conversation analyst specializing in generating aggregation queries on conversational data. Return a single valid JSON object and nothing else."

const systemStructured = "You are a structured data analyst specializing in generating aggregation queries on structured tables. Return a single valid JSON object and nothing else."

const outputContract = `Output Format (strict JSON only, no surrounding text):
{
    "question": "Question text",
    "answer": "The answer is: [numeric value or concise response]",
    "evidence": [ ... ]
}

Evidence Requirements:
- Evidence MUST be direct and strictly necessary to derive the answer.
- Include at least %d but no more than %d distinct evidence entries.
- For structured data, each evidence entry MUST be an object carrying the
  identifying columns of the supporting row plus its "value" and metric.
- For conversational data, reference turns verbatim.
- Never copy the guidance examples below into your output.

Answer Formatting:
- MUST begin with "The answer is: "
- For numerical answers: "The answer is: [number]"
- Avoid explanations or justifications in the answer field.`

const conversationalEasyPrompt = `Please generate a *simple, direct* aggregative query question with practical business relevance based on the provided sessions.
The question must require a single, straightforward aggregation (counting direct occurrences, summing a clear metric, or deduplication).

%s

Generation Requirements:
1. Core operation: exactly one of counting, summing, or deduplication.
2. Scope: MUST span at least %d sessions.
3. Keep it simple: no complex filtering, no multi-step reasoning.

%s`

const conversationalMediumPrompt = `Please generate an aggregative query question of *medium difficulty* with practical business relevance based on the provided sessions.
The question should involve multiple filtering conditions, aggregation across specific time periods, or a simple comparison between two aggregated values.

%s

Generation Requirements:
1. Core operation: counting, summing, or deduplication.
2. Scope: MUST span at least %d sessions.
3. Medium complexity: 1-2 filtering conditions, or time-based aggregation, or comparison of two simple aggregates.

%s`

const conversationalHardPrompt = `Please generate a *complex, multi-step* aggregative query question with high practical relevance based on the provided sessions.
The question must require multiple aggregations (e.g. average of sums, count of distinct items meeting criteria), complex temporal reasoning, or strong implicit filtering.

%s

Generation Requirements:
1. Core operations: multiple counting/summing/deduplication steps, or nested aggregation.
2. Scope: MUST span at least %d sessions, integrating subtle information.
3. High complexity: nested aggregations or multi-period comparisons.

%s`

const structuredEasyPrompt = `Please generate a *simple, direct* aggregative query question over the structured tables below.
The question must be answerable with a single aggregation over one column (sum, count, or distinct count).

%s

Generation Requirements:
1. Core operation: exactly one of counting, summing, or deduplication over table rows.
2. Scope: MUST draw rows from at least %d sessions.
3. The answer must be derivable mechanically from the listed rows, with no outside knowledge.

%s`

const structuredMediumPrompt = `Please generate an aggregative query question of *medium difficulty* over the structured tables below.
The question should combine an aggregation with 1-2 filter conditions (entity, date range, or metric), or compare two aggregated values.

%s

Generation Requirements:
1. Core operation: counting, summing, or deduplication with filtering.
2. Scope: MUST draw rows from at least %d sessions.
3. The answer must be derivable mechanically from the listed rows.

%s`

const structuredHardPrompt = `Please generate a *complex, multi-step* aggregative query question over the structured tables below.
The question must require nested aggregation (e.g. sum of per-entity maxima), multi-condition filtering, or cross-table reasoning.

%s

Generation Requirements:
1. Core operations: multiple aggregation steps over table rows.
2. Scope: MUST draw rows from at least %d sessions.
3. The answer must be derivable mechanically from the listed rows.

%s`

// promptFor returns the template for a content shape and difficulty.
func promptFor(structured bool, difficulty string) (template, system string) {
	if structured {
		switch difficulty {
		case "easy":
			return structuredEasyPrompt, systemStructured
		case "hard":
			return structuredHardPrompt, systemStructured
		default:
			return structuredMediumPrompt, systemStructured
		}
	}
	switch difficulty {
	case "easy":
		return conversationalEasyPrompt, systemConversational
	case "hard":
		return conversationalHardPrompt, systemConversational
	default:
		return conversationalMediumPrompt, systemConversational
	}
}
