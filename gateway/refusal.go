package gateway

import "strings"

// nonOperationalPhrases are substrings that identify an LLM proposer's
// refusal text rather than an executable query. The set is the union of the
// phrasings the proposer prompts instruct the model to emit when a question
// falls outside the backend's domain.
//
// Substring sniffing is inherently tied to the prompt text; if the proposer
// prompts change their refusal wording this list must change with them.
var nonOperationalPhrases = []string{
	"i can only help with",
	"i can only assist with",
	"i can only provide",
	"i'm designed to help with",
	"i'm designed to assist with",
	"unable to provide",
	"unable to answer",
	"no information about",
	"not related to database",
	"general knowledge",
}

// IsNonOperational reports whether text is a proposer refusal rather than an
// executable query. The gateway checks this before validation and execution;
// recognized text is wrapped as a one-record generic response and never
// reaches the backend.
func IsNonOperational(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range nonOperationalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// genericResponse wraps refusal text as the one-record sequence callers
// receive in place of query results.
func genericResponse(text string) []*Record {
	rec := NewRecord()
	rec.Set("message", text)
	rec.Set("type", "generic_response")
	return []*Record{rec}
}
