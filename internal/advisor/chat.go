package advisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/prompt"
)

const (
	chatNoModelText = "Sorry, I couldn't process your question due to a technical issue."
	chatErrorText   = "Sorry, I couldn't process your question. Please try again later."
	thanksText      = "You're welcome! Keep up the great work 🙌"
)

var (
	greetings    = []string{"hi", "hello", "hey"}
	thanksPhrase = []string{"thank you", "thanks", "appreciate it"}

	leadInRe = regexp.MustCompile(`(?i)Based on (your|the) (fitness data|nutrition log|workout history)[,.\s]*`)
	pointRe  = regexp.MustCompile(`(\d+\.|-) `)
)

type termSubstitution struct {
	re   *regexp.Regexp
	with string
}

// Applied in order; "macronutrients" must precede "macros".
var plainTerms = []termSubstitution{
	{regexp.MustCompile(`(?i)macronutrients`), "nutrients"},
	{regexp.MustCompile(`(?i)cardiovascular exercise`), "cardio"},
	{regexp.MustCompile(`(?i)resistance training`), "strength training"},
	{regexp.MustCompile(`(?i)caloric deficit`), "eating fewer calories"},
	{regexp.MustCompile(`(?i)hypertrophy`), "muscle growth"},
	{regexp.MustCompile(`(?i)aerobic capacity`), "stamina"},
	{regexp.MustCompile(`(?i)macros`), "protein/fat/carbs"},
	{regexp.MustCompile(`(?i)micronutrients`), "vitamins/minerals"},
	{regexp.MustCompile(`(?i)thermic effect of food`), "calories burned digesting"},
	{regexp.MustCompile(`(?i)progressive overload`), "gradually increasing difficulty"},
	{regexp.MustCompile(`(?i)body composition`), "muscle/fat ratio"},
}

// Chat answers one free-form question about the user's health.
func (a *Advisor) Chat(ctx context.Context, query string, pc health.PatientContext) string {
	if a.textGen == nil {
		a.unavailable(ctx, OpChat)
		return chatNoModelText
	}

	p, err := prompt.BuildChatPrompt(query, a.withHistory(ctx, pc))
	if err != nil {
		a.log.Error("failed to build chat prompt", "user_id", pc.UserID, "error", err)
		return chatErrorText
	}

	resp, err := a.complete(ctx, OpChat, healthSystemMessage, p, chatMaxTokens)
	if err != nil {
		a.log.Error("chat response generation error", "user_id", pc.UserID, "error", err)
		if text := ErrorText(err); text == quotaExceededText {
			return text
		}
		return chatErrorText
	}

	return FormatResponse(SimplifyTerms(strings.TrimSpace(resp.Content)))
}

// SimplifyTerms drops boilerplate lead-ins and replaces fitness jargon.
func SimplifyTerms(s string) string {
	s = leadInRe.ReplaceAllString(s, "")
	for _, t := range plainTerms {
		s = t.re.ReplaceAllString(s, t.with)
	}
	return s
}

// FormatResponse strips answer labels and breaks numbered or dashed points
// onto their own lines.
func FormatResponse(s string) string {
	s = strings.ReplaceAll(s, "Answer:", "")
	s = strings.ReplaceAll(s, "Response:", "")
	s = strings.TrimSpace(s)
	return pointRe.ReplaceAllString(s, "\n$1 ")
}

// Reply is the answer to one chat message, possibly produced by an action.
type Reply struct {
	Text   string        `json:"text"`
	Action Action        `json:"action,omitempty"`
	Result *ActionResult `json:"result,omitempty"`
}

// Respond routes a chat message: greetings and thanks are answered
// directly, trigger phrases run an action and the rest goes to Chat.
func (a *Advisor) Respond(ctx context.Context, message string, pc health.PatientContext) Reply {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, g := range greetings {
		if lower == g {
			name := pc.Profile.Name
			if name == "" {
				name = "there"
			}
			return Reply{Text: fmt.Sprintf("Hello %s! Ready to crush your health goals today? 💪", name)}
		}
	}
	for _, p := range thanksPhrase {
		if strings.Contains(lower, p) {
			return Reply{Text: thanksText}
		}
	}

	if action, ok := DetectAction(message); ok {
		a.log.Info("running fitness workflow", "user_id", pc.UserID, "action", action)
		res := a.RunAction(ctx, pc, action)
		if res.Status == StatusError {
			return Reply{Text: "⚠️ " + res.Message, Action: action, Result: &res}
		}
		return Reply{Text: FormatResponse(res.Response), Action: action, Result: &res}
	}

	return Reply{Text: a.Chat(ctx, message, pc)}
}
