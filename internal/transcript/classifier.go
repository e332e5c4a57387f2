// Package transcript classifies call transcript text for signals the state
// machine acts on: opt-out requests and decision-maker mentions.
package transcript

import "strings"

// Opt-out phrases. German first since the calling agent operates in German;
// English variants cover mixed-language calls.
var dncPhrases = []string{
	"nicht mehr anrufen",
	"keine anrufe",
	"sperrliste",
	"do not call",
	"don't call",
	"stop calling",
	"remove me from your list",
}

// Decision-maker titles a gatekeeper might mention.
var decisionMakerPhrases = []string{
	"geschäftsführer",
	"geschäftsführung",
	"inhaber",
	"managing director",
	"decision maker",
}

// Result is the classifier's verdict on one piece of transcript text.
type Result struct {
	DNCRequested           bool
	DecisionMakerMentioned bool
}

// Classify scans transcript text for known phrases. Matching is
// case-insensitive substring search: transcripts come from speech
// recognition, so punctuation and casing are unreliable.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	var result Result
	for _, phrase := range dncPhrases {
		if strings.Contains(lower, phrase) {
			result.DNCRequested = true
			break
		}
	}
	for _, phrase := range decisionMakerPhrases {
		if strings.Contains(lower, phrase) {
			result.DecisionMakerMentioned = true
			break
		}
	}

	return result
}
