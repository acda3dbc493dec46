package slackbot

import "math/rand/v2"

// loadingPhrases are the placeholder lines posted while an answer is in
// flight. The placeholder is edited in place once the answer lands, so
// these only live for a few seconds.
var loadingPhrases = []string{
	"Peeling through the archives... 🍊",
	"Squeezing out an answer...",
	"Consulting the knowledge grove...",
	"Thinking... this one has some pulp to it.",
	"Rummaging through the back of the pantry...",
	"Let me check my notes...",
	"Hold on, connecting some dots...",
	"Asking the librarians...",
	"Warming up the thinking cap...",
	"Digging through the docs...",
	"One moment, juicing the details...",
	"Cross-referencing everything I know...",
	"Chewing on that question...",
	"Flipping through the manual...",
	"Putting two and two together...",
	"Sifting the signal from the noise...",
	"Checking with the experts...",
	"Untangling the threads...",
	"Brewing up a response...",
	"Scanning the shelves...",
	"Good question, give me a second...",
	"Following the paper trail...",
	"Measuring twice before I answer once...",
	"Looking that up so you don't have to...",
	"Shaking the tree to see what falls out...",
}

func loadingPhrase() string {
	return loadingPhrases[rand.IntN(len(loadingPhrases))]
}
