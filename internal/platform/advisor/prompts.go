package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

const analysisSystemPrompt = `You are a professional sports betting analyst.
You research the given fixtures (team news, form, injuries, motivation) and
recommend value wagers from the listed markets only.

Rules:
- Only recommend selections that appear in the provided market data, and copy
  event_name, market_name and option_name exactly as given.
- Include market_id and selection_id exactly as given for every pick.
- Never exceed the budget allocated to an event.
- Skip events where you find no value; recommending nothing is acceptable.
- Respond with a single JSON object matching this schema:
  {
    "recommendations": [
      {
        "pick": {"event_name": "...", "market_name": "...", "option_name": "..."},
        "market_id": "...",
        "selection_id": 0,
        "stake": 0.0,
        "odds": 0.0,
        "side": "BACK",
        "reasoning": "..."
      }
    ],
    "overall_reasoning": "..."
  }`

const learningsSystemPrompt = `You maintain a betting strategy memo. Given the
current memo and a batch of new settled bet outcomes, rewrite the memo so it
reflects everything learned so far. Keep it concise and actionable; drop
lessons the new evidence contradicts. Respond with a single JSON object:
{"learnings": "..."}`

// buildAnalysisPrompt renders one slate of events into the user message. The
// total budget is split evenly across events so a single fixture cannot soak
// up the whole bankroll.
func buildAnalysisPrompt(in AnalysisInput) (string, error) {
	if len(in.Events) == 0 {
		return "", fmt.Errorf("no events to analyze")
	}

	perEvent := in.TotalBudget / float64(len(in.Events))

	eventsJSON, err := json.MarshalIndent(in.Events, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", in.TargetDate)
	fmt.Fprintf(&b, "Total budget: %.2f\n", in.TotalBudget)
	fmt.Fprintf(&b, "Budget per event: %.2f\n", perEvent)
	fmt.Fprintf(&b, "Risk appetite (1.0 cautious to 5.0 aggressive): %.1f\n", in.RiskAppetite)
	fmt.Fprintf(&b, "Minimum stake per wager: %.2f\n", in.MinStake)
	fmt.Fprintf(&b, "Minimum acceptable profit per wager: %.2f\n", in.MinProfit)

	if strings.TrimSpace(in.Learnings) != "" {
		fmt.Fprintf(&b, "\nLessons from previous bets:\n%s\n", in.Learnings)
	}

	fmt.Fprintf(&b, "\nFixtures and markets:\n%s\n", eventsJSON)
	return b.String(), nil
}

// buildLearningsPrompt renders the learnings rewrite request.
func buildLearningsPrompt(current string, outcomes []string) string {
	var b strings.Builder
	b.WriteString("Current memo:\n")
	if strings.TrimSpace(current) == "" {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString(current)
		b.WriteString("\n")
	}

	b.WriteString("\nNew settled outcomes:\n")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "- %s\n", o)
	}
	return b.String()
}
