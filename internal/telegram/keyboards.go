package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard(lang string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: T(lang, BtnClean), CallbackData: "clean"},
				{Text: T(lang, BtnStats), CallbackData: "stats"},
			},
			{
				{Text: T(lang, BtnHelp), CallbackData: "help"},
				{Text: T(lang, BtnLang), CallbackData: "lang"},
			},
		},
	}
}

// DestinationKeyboard offers where the reclaimed SOL should go.
func DestinationKeyboard(lang string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: T(lang, BtnDestFirst), CallbackData: "dest:first"},
				{Text: T(lang, BtnDestOther), CallbackData: "dest:other"},
			},
			{
				{Text: T(lang, BtnCancel), CallbackData: "cancel"},
			},
		},
	}
}

// burnPageSize is how many token toggles fit on one selection page.
const burnPageSize = 8

// burnCandidates returns the indices of tokens that can be burned, in
// stable entry order.
func burnCandidates(tokens []TokenEntry) []int {
	var idx []int
	for i, tok := range tokens {
		if tok.Kind != TokenEmpty {
			idx = append(idx, i)
		}
	}
	return idx
}

// BurnPageCount returns how many selection pages the token list needs.
func BurnPageCount(tokens []TokenEntry) int {
	n := len(burnCandidates(tokens))
	if n == 0 {
		return 1
	}
	return (n + burnPageSize - 1) / burnPageSize
}

// BurnSelectionKeyboard lists one page of burnable token accounts as
// toggles. Selected entries carry a flame marker and callback data carries
// the token's absolute index, so toggles stay stable across page turns.
func BurnSelectionKeyboard(lang string, tokens []TokenEntry, selected map[int]bool, page int) *models.InlineKeyboardMarkup {
	candidates := burnCandidates(tokens)
	pageCount := BurnPageCount(tokens)
	if page < 0 {
		page = 0
	}
	if page >= pageCount {
		page = pageCount - 1
	}

	start := page * burnPageSize
	end := start + burnPageSize
	if end > len(candidates) {
		end = len(candidates)
	}

	var rows [][]models.InlineKeyboardButton
	for _, i := range candidates[start:end] {
		label := tokens[i].Label()
		if selected[i] {
			label = "🔥 " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: label, CallbackData: fmt.Sprintf("burn:%d", i)},
		})
	}

	if pageCount > 1 {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "⬅️", CallbackData: "page:prev"},
			{Text: fmt.Sprintf("%d/%d", page+1, pageCount), CallbackData: "page:noop"},
			{Text: "➡️", CallbackData: "page:next"},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: T(lang, BtnContinue), CallbackData: "go"},
		{Text: T(lang, BtnCancel), CallbackData: "cancel"},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BackKeyboard returns a single back-to-menu button.
func BackKeyboard(lang string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: T(lang, BtnBack), CallbackData: "back"},
			},
		},
	}
}

// CancelKeyboard returns a single cancel button for input prompts.
func CancelKeyboard(lang string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: T(lang, BtnCancel), CallbackData: "cancel"},
			},
		},
	}
}
