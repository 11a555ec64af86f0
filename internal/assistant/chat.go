// Package assistant answers free-text questions about a scan result or an
// uploaded dataset using keyword heuristics.
package assistant

import (
	"fmt"
	"strings"
)

// Context is the scan state a chat message is answered against.
type Context struct {
	RiskScore    int `json:"risk_score"`
	FindingCount int `json:"finding_count"`
}

// Reply is the assistant's answer with suggested follow-up prompts.
type Reply struct {
	Response     string   `json:"response"`
	QuickActions []string `json:"quick_actions"`
}

type chatRule struct {
	keywords []string
	answer   func(Context) Reply
}

// ChatAssistant answers with the first rule whose keyword occurs in the
// lower-cased message.
type ChatAssistant struct {
	rules []chatRule
}

// NewChatAssistant returns an assistant with the built-in rules.
func NewChatAssistant() *ChatAssistant {
	return &ChatAssistant{rules: []chatRule{
		{keywords: []string{"risk", "score"}, answer: riskReply},
		{keywords: []string{"vulnerability", "issue"}, answer: issuesReply},
		{keywords: []string{"export", "report"}, answer: func(Context) Reply {
			return Reply{
				Response:     "You can download a detailed PDF report or export the raw data as JSON from the history view.",
				QuickActions: []string{"Download PDF", "Go to History"},
			}
		}},
		{keywords: []string{"help"}, answer: func(Context) Reply {
			return Reply{
				Response:     "I can help you analyze your scan results, explain specific vulnerabilities, or guide you through remediation steps. What do you need?",
				QuickActions: []string{"Analyze Risk", "Explain SQL Injection", "How to fix CORS"},
			}
		}},
	}}
}

// Respond answers message against ctx.
func (a *ChatAssistant) Respond(message string, ctx Context) Reply {
	lowered := strings.ToLower(message)
	for _, rule := range a.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.answer(ctx)
			}
		}
	}
	return Reply{
		Response:     "I'm here to help with your security assessment. You can ask me about your risk score, specific findings, or how to fix vulnerabilities.",
		QuickActions: []string{"What is my risk score?", "How many issues found?"},
	}
}

func riskReply(ctx Context) Reply {
	var text string
	switch {
	case ctx.RiskScore > 80:
		text = fmt.Sprintf("Your current risk score is **%d/100**, which is excellent! Your system is quite secure.", ctx.RiskScore)
	case ctx.RiskScore > 50:
		text = fmt.Sprintf("Your risk score is **%d/100**. There is room for improvement. I recommend addressing the medium-severity issues.", ctx.RiskScore)
	default:
		text = fmt.Sprintf("Your risk score is **%d/100**, which is critical. You have major vulnerabilities that need immediate attention.", ctx.RiskScore)
	}
	return Reply{Response: text, QuickActions: []string{"Show Recommendations", "Start New Scan"}}
}

func issuesReply(ctx Context) Reply {
	return Reply{
		Response:     fmt.Sprintf("I found **%d vulnerabilities** in the latest scan. Would you like me to list the high-priority ones?", ctx.FindingCount),
		QuickActions: []string{"List High Risks", "Export PDF"},
	}
}
