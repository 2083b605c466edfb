package ai

import (
	"fmt"
	"strings"

	"example.com/freddy/backend/internal/models"
)

const (
	historyWindow      = 6
	transactionsWindow = 10
)

const systemPrompt = "You are Freddy. You represent clarity in finance. You are concise and deliberate. Respond with JSON only, without extra text."

const instructions = `Instructions:
1. Parse ALL expenses mentioned in the user's message, even if there are multiple.
2. For each expense, determine the appropriate category using these rules:
   FOOD ITEMS (use "Food" category):
   - Fruits: tangerine, orange, apple, banana, etc.
   - Snacks: chocolate, candy, chips, etc.
   - Restaurants: Chowdeck, McDonald's, KFC, etc.
   - Groceries: supermarket, grocery, etc.
   TRANSPORT (use "Transport" category):
   - Uber, Lyft, taxi, bus, train, gas, fuel
   PERSONAL/FAMILY (use "Personal" category):
   - Payments to people: "my sister", "John", "mom", "friend"
   - Gifts, loans to individuals
   LIFESTYLE (use "Lifestyle" category):
   - Entertainment: movies, concerts, games
   - Shopping: clothes, accessories, electronics
   - Subscriptions: Netflix, Spotify, gym
3. Prefer an existing budget whose name matches the category exactly or closely (for example "Rent & Living" for rent). Use its exact name.
4. If a matching budget exists, use a LOG_EXPENSE action with amount, category and item.
5. If no budget matches, use REQUEST_BUDGET_CREATION with the category and amount and ask the user whether to create it.
6. When the user confirms a budget creation ("yes", "ok", "sure"), use CREATE_BUDGET with category, a suggested limit, the pending amount and item.
7. When the user asks to move money between budgets, use TRANSFER_BUDGET with amount, fromCategory and toCategory.
8. When the user asks for advice, use GIVE_ADVICE with a short advice text based on the budgets and recent transactions.
9. Return multiple actions if there are multiple expenses. Use NONE when nothing should change.

Example: "I spent 4500 on tangerine, 2k on chocolate, 5k on my sister" gives three actions:
- LOG_EXPENSE 4500 to Food (tangerine)
- LOG_EXPENSE 2000 to Food (chocolate)
- REQUEST_BUDGET_CREATION for "Personal" with amount 5000 (my sister)

Output format:
{"message": string, "actions": [{"type": "LOG_EXPENSE" | "CREATE_BUDGET" | "REQUEST_BUDGET_CREATION" | "TRANSFER_BUDGET" | "GIVE_ADVICE" | "NONE", "data": {"amount": number, "limit": number, "category": string, "item": string, "fromCategory": string, "toCategory": string, "advice": string}}]}

Personality:
- Use fewer words.
- Be helpful but not chatty.`

func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "Currency: %s\n", req.Currency)

	b.WriteString("Budgets:\n")
	if len(req.Budgets) == 0 {
		b.WriteString("None.\n")
	}
	for _, budget := range req.Budgets {
		fmt.Fprintf(&b, "%s: Limit %s, Current %s\n", budget.Category, formatAmount(budget.Limit), formatAmount(budget.Spent))
	}

	b.WriteString("Income streams:\n")
	if len(req.Incomes) == 0 {
		b.WriteString("None.\n")
	}
	for _, income := range req.Incomes {
		fmt.Fprintf(&b, "%s: %s\n", income.Source, formatAmount(income.Amount))
	}

	b.WriteString("Recent transactions:\n")
	recent := req.Transactions
	if len(recent) > transactionsWindow {
		recent = recent[:transactionsWindow]
	}
	if len(recent) == 0 {
		b.WriteString("None.\n")
	}
	for _, tx := range recent {
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", tx.Date, tx.Category, formatAmount(tx.Amount), tx.Description)
	}

	b.WriteString("History:\n")
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		speaker := "Freddy"
		if msg.Role == models.RoleUser {
			speaker = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Text)
	}

	fmt.Fprintf(&b, "\nCurrent User Input: %q\n\n", req.Text)
	b.WriteString(instructions)

	return b.String()
}

func formatAmount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
