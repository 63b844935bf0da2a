package interpreter

import "strings"

// Canned replies for the conversational fast path. Matching is constant-time
// set membership over the normalized message; the language model is never
// consulted here.
const (
	greetingReply  = "Hello! Ask me anything about NSE stocks - for example, \"show me 5 high volume stocks\" or \"stocks like Maruti\"."
	gratitudeReply = "You're welcome! Happy to help with more stock questions."
	closingReply   = "Goodbye! Come back anytime you want to screen stocks."
	metaReply      = "I can screen and rank stocks from natural language. Try \"high delivery stocks under 500\" or \"stocks similar to TCS\"."
)

var greetingTokens = map[string]bool{
	"hi":             true,
	"hii":            true,
	"hello":          true,
	"hey":            true,
	"yo":             true,
	"namaste":        true,
	"good morning":   true,
	"good evening":   true,
	"good afternoon": true,
}

var gratitudeTokens = map[string]bool{
	"thanks":       true,
	"thank you":    true,
	"thanks a lot": true,
	"thx":          true,
	"ty":           true,
}

var closingTokens = map[string]bool{
	"bye":        true,
	"goodbye":    true,
	"see you":    true,
	"good night": true,
	"ok bye":     true,
}

var metaTokens = map[string]bool{
	"why":   true,
	"what":  true,
	"why?":  true,
	"what?": true,
	"how":   true,
	"how?":  true,
}

// normalize lowercases and trims the raw message, collapsing trailing
// punctuation so "hello!!" still hits the fast path.
func normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(t, "!. ")
}

// SmallTalk checks the message against the fixed conversational sets and
// returns a canned reply when matched. The boolean reports a match.
func SmallTalk(text string) (string, bool) {
	t := normalize(text)
	switch {
	case greetingTokens[t]:
		return greetingReply, true
	case gratitudeTokens[t]:
		return gratitudeReply, true
	case closingTokens[t]:
		return closingReply, true
	case metaTokens[t]:
		return metaReply, true
	}
	return "", false
}
