package telegram

import "fmt"

// MsgID identifies one user-facing message in the catalog.
type MsgID string

const (
	MsgWelcome          MsgID = "welcome"
	MsgReferralJoined   MsgID = "referral_joined"
	MsgReferralUnknown  MsgID = "referral_unknown"
	MsgAskKeys          MsgID = "ask_keys"
	MsgKeysInvalid      MsgID = "keys_invalid"
	MsgScanning         MsgID = "scanning"
	MsgScanFailed       MsgID = "scan_failed"
	MsgScanSummary      MsgID = "scan_summary"
	MsgNothingToClean   MsgID = "nothing_to_clean"
	MsgAskDestination   MsgID = "ask_destination"
	MsgBadDestination   MsgID = "bad_destination"
	MsgSelectBurns      MsgID = "select_burns"
	MsgSettling         MsgID = "settling"
	MsgSettleFailed     MsgID = "settle_failed"
	MsgSettleNonzero    MsgID = "settle_nonzero"
	MsgSettleFrozen     MsgID = "settle_frozen"
	MsgSettleNoFunds    MsgID = "settle_no_funds"
	MsgSettleSummary    MsgID = "settle_summary"
	MsgSettleSummaryUSD MsgID = "settle_summary_usd"
	MsgFeelessNote      MsgID = "feeless_note"
	MsgStats            MsgID = "stats"
	MsgStatsEmpty       MsgID = "stats_empty"
	MsgSessionExpired   MsgID = "session_expired"
	MsgHelp             MsgID = "help"
	MsgLangSwitched     MsgID = "lang_switched"

	BtnClean     MsgID = "btn_clean"
	BtnStats     MsgID = "btn_stats"
	BtnHelp      MsgID = "btn_help"
	BtnLang      MsgID = "btn_lang"
	BtnDestFirst MsgID = "btn_dest_first"
	BtnDestOther MsgID = "btn_dest_other"
	BtnContinue  MsgID = "btn_continue"
	BtnCancel    MsgID = "btn_cancel"
	BtnBack      MsgID = "btn_back"
)

var catalog = map[string]map[MsgID]string{
	"en": {
		MsgWelcome: "👋 Welcome to <b>SolBeck</b>!\n\n" +
			"I scan your Solana wallets for leftover token accounts, close them and " +
			"return the locked rent to you.\n\n" +
			"• Empty accounts are closed\n" +
			"• Unwanted balances can be burned first\n" +
			"• Native SOL is swept to one destination\n\n" +
			"Service fee: <b>%.0f%%</b> of reclaimed SOL.\n\nChoose an action 👇",
		MsgReferralJoined:  "🎉 Referral <b>%s</b> activated! Your first <b>%d</b> wallets are cleaned without a fee.",
		MsgReferralUnknown: "⚠️ Unknown referral code, continuing without it.",
		MsgAskKeys: "🔑 Send the private keys of the wallets to clean.\n\n" +
			"Accepted formats, one or more per message:\n" +
			"• base58 secret keys, separated by spaces, commas or new lines\n" +
			"• a 12 or 24 word seed phrase on its own line\n\n" +
			"The message is deleted right after processing and keys never leave this session.",
		MsgKeysInvalid:    "❌ Could not read those keys: %s\n\nCheck the format and try again.",
		MsgScanning:       "🔍 Scanning %d wallet(s)...",
		MsgScanFailed:     "❌ Scan failed: %s\n\nThe RPC node may be busy, try again in a minute.",
		MsgScanSummary:    "📊 <b>Scan result for %d wallet(s)</b>\n\n• Closable empty accounts: <b>%d</b>\n• Accounts with balances: <b>%d</b>\n• Stale accounts (no activity for days): <b>%d</b>\n\nEstimated reclaim: <b>%.6f SOL</b>%s\n\nWhere should the reclaimed SOL go?",
		MsgNothingToClean: "✨ Nothing to clean, these wallets have no closable token accounts.",
		MsgAskDestination: "📮 Send the Solana address that should receive the reclaimed SOL:",
		MsgBadDestination: "❌ That does not look like a valid Solana address, try again.",
		MsgSelectBurns: "🔥 <b>Accounts holding tokens</b>\n\n" +
			"A token account can only be closed once its balance is burned. " +
			"Tap the tokens you are willing to burn, then continue. Unselected tokens stay untouched.",
		MsgSettling:     "⚙️ Cleaning in progress, this can take a minute...",
		MsgSettleFailed: "❌ Cleanup failed: %s",
		MsgSettleNonzero: "❌ Cleanup stopped: one of the accounts still holds tokens. " +
			"Select that token for burning, or leave its account out.",
		MsgSettleFrozen:  "❌ Cleanup stopped: a token account is frozen by its issuer and cannot be touched.",
		MsgSettleNoFunds: "❌ Cleanup stopped: not enough SOL to cover transaction costs.",
		MsgSettleSummary: "✅ <b>Cleanup complete</b>\n\n" +
			"• Accounts closed: <b>%d</b>\n• Tokens burned: <b>%d</b>\n" +
			"• Reclaimed: <b>%.6f SOL</b>\n• Service fee: <b>%.6f SOL</b>\n" +
			"• Net to you: <b>%.6f SOL</b>%s",
		MsgSettleSummaryUSD: " (≈ $%.2f)",
		MsgFeelessNote:      "\n\n🎁 No fee charged thanks to your referral.",
		MsgStats: "📈 <b>Your stats</b>\n\n" +
			"• Cleanups: <b>%d</b>\n• Wallets cleaned: <b>%d</b>\n" +
			"• Accounts closed: <b>%d</b>\n• Tokens burned: <b>%d</b>\n" +
			"• Total reclaimed: <b>%.6f SOL</b>\n• Total net: <b>%.6f SOL</b>",
		MsgStatsEmpty:     "📈 No cleanups yet. Start one from the main menu!",
		MsgSessionExpired: "⌛ Session expired, start again from the main menu.",
		MsgHelp: "ℹ️ <b>How it works</b>\n\n" +
			"Every SPL token account locks ~0.002 SOL of rent. When the account is " +
			"empty that rent is just stuck. I close those accounts and send the rent back to you.\n\n" +
			"Keys are used for one cleanup session only and are wiped afterwards.",
		MsgLangSwitched: "🌐 Language switched to English.",

		BtnClean:     "🧹 Clean wallets",
		BtnStats:     "📈 My stats",
		BtnHelp:      "ℹ️ Help",
		BtnLang:      "🌐 Русский",
		BtnDestFirst: "📥 First wallet",
		BtnDestOther: "📮 Other address",
		BtnContinue:  "▶️ Continue",
		BtnCancel:    "✖️ Cancel",
		BtnBack:      "⬅️ Back",
	},
	"ru": {
		MsgWelcome: "👋 Добро пожаловать в <b>SolBeck</b>!\n\n" +
			"Я сканирую ваши Solana-кошельки, закрываю пустые токен-аккаунты и " +
			"возвращаю заблокированную ренту.\n\n" +
			"• Пустые аккаунты закрываются\n" +
			"• Ненужные балансы можно сжечь\n" +
			"• SOL собирается на один адрес\n\n" +
			"Комиссия сервиса: <b>%.0f%%</b> от возвращённого SOL.\n\nВыберите действие 👇",
		MsgReferralJoined:  "🎉 Реферальный код <b>%s</b> активирован! Первые <b>%d</b> кошельков без комиссии.",
		MsgReferralUnknown: "⚠️ Неизвестный реферальный код, продолжаем без него.",
		MsgAskKeys: "🔑 Отправьте приватные ключи кошельков.\n\n" +
			"Форматы:\n" +
			"• base58 ключи через пробел, запятую или с новой строки\n" +
			"• seed-фраза из 12 или 24 слов отдельной строкой\n\n" +
			"Сообщение удаляется сразу после обработки.",
		MsgKeysInvalid:    "❌ Не удалось прочитать ключи: %s\n\nПроверьте формат и попробуйте ещё раз.",
		MsgScanning:       "🔍 Сканирую %d кошелёк(ов)...",
		MsgScanFailed:     "❌ Сканирование не удалось: %s\n\nRPC может быть перегружен, попробуйте через минуту.",
		MsgScanSummary:    "📊 <b>Результат для %d кошелька(ов)</b>\n\n• Пустых аккаунтов к закрытию: <b>%d</b>\n• Аккаунтов с балансом: <b>%d</b>\n• Неактивных аккаунтов: <b>%d</b>\n\nОценка возврата: <b>%.6f SOL</b>%s\n\nКуда отправить SOL?",
		MsgNothingToClean: "✨ Нечего чистить, в этих кошельках нет закрываемых токен-аккаунтов.",
		MsgAskDestination: "📮 Отправьте Solana-адрес для получения SOL:",
		MsgBadDestination: "❌ Это не похоже на корректный Solana-адрес, попробуйте ещё раз.",
		MsgSelectBurns: "🔥 <b>Аккаунты с токенами</b>\n\n" +
			"Аккаунт можно закрыть только после сжигания баланса. " +
			"Отметьте токены, которые готовы сжечь, затем продолжите.",
		MsgSettling:     "⚙️ Очистка выполняется, это может занять минуту...",
		MsgSettleFailed: "❌ Очистка не удалась: %s",
		MsgSettleNonzero: "❌ Очистка остановлена: на одном из аккаунтов остались токены. " +
			"Отметьте этот токен для сжигания или исключите аккаунт.",
		MsgSettleFrozen:  "❌ Очистка остановлена: токен-аккаунт заморожен эмитентом.",
		MsgSettleNoFunds: "❌ Очистка остановлена: недостаточно SOL для оплаты транзакций.",
		MsgSettleSummary: "✅ <b>Очистка завершена</b>\n\n" +
			"• Закрыто аккаунтов: <b>%d</b>\n• Сожжено токенов: <b>%d</b>\n" +
			"• Возвращено: <b>%.6f SOL</b>\n• Комиссия: <b>%.6f SOL</b>\n" +
			"• Вам: <b>%.6f SOL</b>%s",
		MsgSettleSummaryUSD: " (≈ $%.2f)",
		MsgFeelessNote:      "\n\n🎁 Комиссия не взята благодаря рефералу.",
		MsgStats: "📈 <b>Ваша статистика</b>\n\n" +
			"• Очисток: <b>%d</b>\n• Кошельков: <b>%d</b>\n" +
			"• Закрыто аккаунтов: <b>%d</b>\n• Сожжено токенов: <b>%d</b>\n" +
			"• Всего возвращено: <b>%.6f SOL</b>\n• Всего вам: <b>%.6f SOL</b>",
		MsgStatsEmpty:     "📈 Очисток пока нет. Начните с главного меню!",
		MsgSessionExpired: "⌛ Сессия истекла, начните заново из главного меню.",
		MsgHelp: "ℹ️ <b>Как это работает</b>\n\n" +
			"Каждый SPL токен-аккаунт блокирует ~0.002 SOL ренты. Когда аккаунт пуст, " +
			"эта рента просто лежит без дела. Я закрываю такие аккаунты и возвращаю ренту вам.\n\n" +
			"Ключи используются только в рамках одной сессии и затем стираются.",
		MsgLangSwitched: "🌐 Язык переключён на русский.",

		BtnClean:     "🧹 Почистить кошельки",
		BtnStats:     "📈 Статистика",
		BtnHelp:      "ℹ️ Помощь",
		BtnLang:      "🌐 English",
		BtnDestFirst: "📥 Первый кошелёк",
		BtnDestOther: "📮 Другой адрес",
		BtnContinue:  "▶️ Продолжить",
		BtnCancel:    "✖️ Отмена",
		BtnBack:      "⬅️ Назад",
	},
}

// T resolves a message for a language, formatting args into it. Unknown
// languages and missing translations fall back to English.
func T(lang string, id MsgID, args ...interface{}) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog["en"]
	}
	text, ok := msgs[id]
	if !ok {
		text = catalog["en"][id]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
