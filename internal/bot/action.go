// Package bot turns normalized chat events into ledger operations and
// response payloads. It knows nothing about the transport delivering them.
package bot

import "strings"

// Action is one of the fixed main-menu selections.
type Action string

const (
	ActionAddIncome  Action = "add_income"
	ActionAddExpense Action = "add_expense"
	ActionBalance    Action = "balance"
	ActionReport     Action = "report"
	ActionHistory    Action = "history"
)

// Actions lists every menu action in menu order.
var Actions = []Action{ActionAddIncome, ActionAddExpense, ActionBalance, ActionReport, ActionHistory}

// Label is the text of the menu button for a.
func (a Action) Label() string {
	switch a {
	case ActionAddIncome:
		return "➕ Income"
	case ActionAddExpense:
		return "➖ Expense"
	case ActionBalance:
		return "💰 Balance"
	case ActionReport:
		return "📊 Report"
	case ActionHistory:
		return "📒 History"
	default:
		return ""
	}
}

func (a Action) Valid() bool {
	return a.Label() != ""
}

// MatchLabel resolves a text message that is exactly a menu label.
func MatchLabel(text string) (Action, bool) {
	text = strings.TrimSpace(text)
	for _, a := range Actions {
		if text == a.Label() {
			return a, true
		}
	}
	return "", false
}

// MainMenu is the reply keyboard shown under most answers.
func MainMenu() [][]string {
	return [][]string{
		{ActionAddIncome.Label(), ActionAddExpense.Label()},
		{ActionBalance.Label(), ActionReport.Label()},
		{ActionHistory.Label()},
	}
}
