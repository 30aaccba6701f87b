package telegram

import (
	"fmt"
	"strings"
	"testing"
)

func burnTokens(n int) []TokenEntry {
	tokens := make([]TokenEntry, n)
	for i := range tokens {
		tokens[i] = TokenEntry{Symbol: fmt.Sprintf("TOK%d", i), UIBalance: 1, Kind: TokenBalance}
	}
	return tokens
}

func TestBurnPageCount(t *testing.T) {
	if got := BurnPageCount(nil); got != 1 {
		t.Errorf("empty list: expected 1 page, got %d", got)
	}
	if got := BurnPageCount(burnTokens(8)); got != 1 {
		t.Errorf("8 tokens: expected 1 page, got %d", got)
	}
	if got := BurnPageCount(burnTokens(9)); got != 2 {
		t.Errorf("9 tokens: expected 2 pages, got %d", got)
	}
	if got := BurnPageCount(burnTokens(20)); got != 3 {
		t.Errorf("20 tokens: expected 3 pages, got %d", got)
	}
}

func TestBurnSelectionKeyboardPaginates(t *testing.T) {
	tokens := burnTokens(20)

	kb := BurnSelectionKeyboard("en", tokens, nil, 0)
	// 8 toggles, one nav row, one continue/cancel row
	if got := len(kb.InlineKeyboard); got != 10 {
		t.Fatalf("page 0: expected 10 rows, got %d", got)
	}
	if data := kb.InlineKeyboard[0][0].CallbackData; data != "burn:0" {
		t.Errorf("first toggle callback = %q", data)
	}
	nav := kb.InlineKeyboard[8]
	if len(nav) != 3 || nav[0].CallbackData != "page:prev" || nav[2].CallbackData != "page:next" {
		t.Errorf("unexpected nav row %+v", nav)
	}
	if nav[1].Text != "1/3" {
		t.Errorf("page indicator = %q", nav[1].Text)
	}

	// last page holds the remaining 4 toggles
	kb = BurnSelectionKeyboard("en", tokens, nil, 2)
	if got := len(kb.InlineKeyboard); got != 6 {
		t.Fatalf("page 2: expected 6 rows, got %d", got)
	}
	if data := kb.InlineKeyboard[0][0].CallbackData; data != "burn:16" {
		t.Errorf("first toggle on page 2 = %q", data)
	}
}

func TestBurnSelectionKeyboardSinglePage(t *testing.T) {
	kb := BurnSelectionKeyboard("en", burnTokens(3), nil, 0)

	// 3 toggles plus continue/cancel, no nav row
	if got := len(kb.InlineKeyboard); got != 4 {
		t.Fatalf("expected 4 rows, got %d", got)
	}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == "page:prev" || btn.CallbackData == "page:next" {
				t.Fatal("single page must not render navigation")
			}
		}
	}
}

func TestBurnSelectionKeyboardAbsoluteIndices(t *testing.T) {
	// Empty accounts are not burn candidates; indices in callback data stay
	// absolute so toggles survive interleaved empties.
	tokens := []TokenEntry{
		{Symbol: "A", Kind: TokenEmpty},
		{Symbol: "B", UIBalance: 1, Kind: TokenBalance},
		{Symbol: "C", Kind: TokenEmpty},
		{Symbol: "D", UIBalance: 2, Kind: TokenInactive},
	}

	kb := BurnSelectionKeyboard("en", tokens, map[int]bool{3: true}, 0)
	if got := len(kb.InlineKeyboard); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	if data := kb.InlineKeyboard[0][0].CallbackData; data != "burn:1" {
		t.Errorf("first toggle = %q", data)
	}
	if data := kb.InlineKeyboard[1][0].CallbackData; data != "burn:3" {
		t.Errorf("second toggle = %q", data)
	}
	if text := kb.InlineKeyboard[1][0].Text; !strings.HasPrefix(text, "🔥") {
		t.Errorf("selected entry missing marker: %q", text)
	}
}

func TestBurnSelectionKeyboardClampsPage(t *testing.T) {
	kb := BurnSelectionKeyboard("en", burnTokens(20), nil, 99)

	// out-of-range page renders the last one
	if data := kb.InlineKeyboard[0][0].CallbackData; data != "burn:16" {
		t.Errorf("first toggle = %q", data)
	}
}
