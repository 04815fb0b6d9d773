package models

import (
	"fmt"
	"strings"
)

// User is the identity produced by the session gate.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AIActionType names one of the AI actions a prompt can be run through.
type AIActionType string

const (
	ActionEvaluate  AIActionType = "EVALUATE"
	ActionEnhance   AIActionType = "ENHANCE"
	ActionCodePlan  AIActionType = "CODE_PLAN"
	ActionFunPrompt AIActionType = "FUN_PROMPT"
)

// AIActionTypes lists every action in display order.
var AIActionTypes = []AIActionType{ActionEvaluate, ActionEnhance, ActionCodePlan, ActionFunPrompt}

func (a AIActionType) Valid() bool {
	switch a {
	case ActionEvaluate, ActionEnhance, ActionCodePlan, ActionFunPrompt:
		return true
	}
	return false
}

func (a AIActionType) String() string {
	return string(a)
}

// ParseAIActionType accepts the canonical name in any case, with '-' or '_'.
func ParseAIActionType(s string) (AIActionType, error) {
	a := AIActionType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !a.Valid() {
		return "", fmt.Errorf("unknown AI action %q", s)
	}
	return a, nil
}

// ChartDataPoint is one bar of the prompt stats chart.
type ChartDataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
