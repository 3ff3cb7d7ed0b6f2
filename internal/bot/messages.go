package bot

import (
	"fmt"
	"strings"

	"conti/internal/core"
)

const (
	msgGreeting = "Hi! 👋 This is your finance assistant.\n\n" +
		"Pick an action from the menu or type an entry directly:\n" +
		"  +1000 salary\n" +
		"  -500 food"
	msgPromptIncome  = "Enter the income amount and category (e.g. 1000 salary)"
	msgPromptExpense = "Enter the expense amount and category (e.g. 500 food)"
	msgBadEntry      = "Invalid format. Enter: 1000 category (e.g. 1000 salary)"
	msgBadEdit       = "Invalid format for the edit. Format: 1000 category"
	msgUnrecognized  = "I didn't get that. Pick a menu action or type '+1000 salary' / '-500 food'."
	msgNotFound      = "Record not found."
	msgForbidEdit    = "You can't edit someone else's records."
	msgForbidDelete  = "You can't delete someone else's records."
	msgBadCallback   = "Unknown action."
	msgEmptyHistory  = "History is empty."
	msgNoOperations  = "No operations this month."
	msgNoExpenses    = "No expenses this month."
	msgNoIncome      = "No income this month."
	msgFailure       = "Something went wrong, please try again later."
	msgCategoryLong  = "Category is too long (max 200 characters)."
)

func promptEdit(id int64) string {
	return fmt.Sprintf("Enter the new amount and category for record #%d (e.g. 500 taxi)", id)
}

func added(r core.Record) string {
	return fmt.Sprintf("✅ Added: %s%s (%s)", r.Kind.Sign(), r.Amount, r.Category)
}

func updated(r core.Record) string {
	return fmt.Sprintf("Record #%d updated: %s (%s)", r.ID, r.Amount, r.Category)
}

func deleted(id int64) string {
	return fmt.Sprintf("✅ Record #%d deleted.", id)
}

func balanceText(b core.Balance) string {
	return fmt.Sprintf("💰 Balance: %s\n➕ Income: %s\n➖ Expense: %s", b.Net, b.Income, b.Expense)
}

func reportTitle(m core.Month) string {
	return fmt.Sprintf("📊 Report for %s", m)
}

func historyText(records []core.Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Line())
	}
	return strings.Join(lines, "\n")
}
