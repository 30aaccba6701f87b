package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/TheUnknownIndividual/solbeck/internal/config"
	"github.com/TheUnknownIndividual/solbeck/internal/referral"
	"github.com/TheUnknownIndividual/solbeck/internal/scanner"
	"github.com/TheUnknownIndividual/solbeck/internal/settle"
	"github.com/TheUnknownIndividual/solbeck/internal/storage"
	"github.com/TheUnknownIndividual/solbeck/internal/wallet"
)

// WalletScanner discovers and classifies token accounts for a key set.
type WalletScanner interface {
	Scan(ctx context.Context, identities []*wallet.Identity, checkActivity bool) (*scanner.Result, error)
}

// Settler runs the burn, close, sweep and fee phases of a cleanup.
type Settler interface {
	Settle(ctx context.Context, req settle.Request) (*settle.Result, error)
}

// StatsStore serves the per-user settlement history.
type StatsStore interface {
	Stats(userID int64) (*storage.UserStats, error)
}

// RateSource supplies the SOL/USD rate for display, 0 when unavailable.
type RateSource interface {
	SOLToUSD(ctx context.Context) float64
}

// Deps wires the bot to the rest of the system.
type Deps struct {
	Token         string
	Scanner       WalletScanner
	Engine        Settler
	Referrals     *referral.Tracker
	Stats         StatsStore
	Rates         RateSource
	FeeRate       float64
	EstimatedRent uint64
	Logger        *logrus.Logger
}

// Bot wraps the telegram bot with the cleanup conversation handlers.
type Bot struct {
	bot           *bot.Bot
	scanner       WalletScanner
	engine        Settler
	referrals     *referral.Tracker
	stats         StatsStore
	rates         RateSource
	sessions      *SessionManager
	cipher        *SessionCipher
	feeRate       float64
	estimatedRent uint64
	log           *logrus.Logger
}

// New creates the telegram bot and registers its handlers.
func New(deps Deps) (*Bot, error) {
	cipher, err := NewSessionCipher()
	if err != nil {
		return nil, fmt.Errorf("session cipher: %w", err)
	}

	b := &Bot{
		scanner:       deps.Scanner,
		engine:        deps.Engine,
		referrals:     deps.Referrals,
		stats:         deps.Stats,
		rates:         deps.Rates,
		sessions:      NewSessionManager(),
		cipher:        cipher,
		feeRate:       deps.FeeRate,
		estimatedRent: deps.EstimatedRent,
		log:           deps.Logger,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(deps.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	b.bot = tgBot

	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, b.statsCommandHandler)

	return b, nil
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID
	lang := b.sessions.Language(userID)
	chatID := update.Message.Chat.ID

	// Deep-link payload carries an optional referral code.
	if payload := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/start")); payload != "" && b.referrals != nil {
		if err := b.referrals.RecordJoin(userID, payload); err != nil {
			b.sendMessage(ctx, chatID, T(lang, MsgReferralUnknown), nil)
		} else if code, ok := referral.Codes[payload]; ok {
			b.sendMessage(ctx, chatID, T(lang, MsgReferralJoined, code.Name, code.FreeWallets), nil)
		}
	}

	b.sendMessage(ctx, chatID, T(lang, MsgWelcome, b.feeRate*100), MainKeyboard(lang))
}

func (b *Bot) statsCommandHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	userID := update.Message.From.ID
	b.sendMessage(ctx, update.Message.Chat.ID, b.statsText(userID), MainKeyboard(b.sessions.Language(userID)))
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	userID := update.Message.From.ID
	session := b.sessions.Get(userID)
	if session == nil || session.IsBusy() {
		return
	}

	switch session.State {
	case StateWaitKeys:
		b.handleKeysInput(ctx, update.Message, session)
	case StateWaitDestination:
		b.handleDestinationInput(ctx, update.Message, session)
	}
}

// handleKeysInput parses the submitted key material, deletes the message it
// arrived in, and runs the scan. The raw input survives only as a sealed
// blob inside the session.
func (b *Bot) handleKeysInput(ctx context.Context, msg *models.Message, session *Session) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	lang := b.sessions.Language(userID)
	text := msg.Text

	b.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: msg.ID})

	identities, err := wallet.ParseSecretKeys(text)
	if err != nil {
		b.sendMessage(ctx, chatID, T(lang, MsgKeysInvalid, err.Error()), CancelKeyboard(lang))
		return
	}
	defer wallet.ZeroizeAll(identities)

	sealed, err := b.cipher.Seal([]byte(text))
	if err != nil {
		b.log.WithError(err).Error("Failed to seal session keys")
		b.sendMessage(ctx, chatID, T(lang, MsgSettleFailed, "internal error"), MainKeyboard(lang))
		b.sessions.Clear(userID)
		return
	}

	b.sendMessage(ctx, chatID, T(lang, MsgScanning, len(identities)), nil)

	result, err := b.scanner.Scan(ctx, identities, true)
	if err != nil {
		b.log.WithError(err).WithField("user_id", userID).Error("Scan failed")
		b.sendMessage(ctx, chatID, T(lang, MsgScanFailed, err.Error()), MainKeyboard(lang))
		b.sessions.Clear(userID)
		return
	}

	if result.Total() == 0 {
		b.sendMessage(ctx, chatID, T(lang, MsgNothingToClean), MainKeyboard(lang))
		b.sessions.Clear(userID)
		return
	}

	session.SealedKeys = sealed
	session.WalletCount = len(identities)
	session.Owners = make([]solana.PublicKey, len(identities))
	for i, id := range identities {
		session.Owners[i] = id.PublicKey()
	}
	session.Tokens = b.tokenEntries(session.Owners, result)
	session.State = ""

	estimate := config.ConvertLamportsToSOL(uint64(len(result.Empty)) * b.estimatedRent)
	usdSuffix := ""
	if price := b.rates.SOLToUSD(ctx); price > 0 {
		usdSuffix = T(lang, MsgSettleSummaryUSD, estimate*price)
	}

	b.sendMessage(ctx, chatID, T(lang, MsgScanSummary,
		len(identities), len(result.Empty), len(result.WithBalance), len(result.Inactive),
		estimate, usdSuffix,
	), DestinationKeyboard(lang))
}

func (b *Bot) handleDestinationInput(ctx context.Context, msg *models.Message, session *Session) {
	userID := msg.From.ID
	lang := b.sessions.Language(userID)

	dest, err := wallet.ParseDestination(msg.Text)
	if err != nil {
		b.sendMessage(ctx, msg.Chat.ID, T(lang, MsgBadDestination), CancelKeyboard(lang))
		return
	}

	session.Destination = &dest
	session.State = ""
	b.proceedAfterDestination(ctx, msg.Chat.ID, userID, session)
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	userID := cb.From.ID
	data := cb.Data
	lang := b.sessions.Language(userID)

	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch {
	case data == "back":
		b.editMessage(ctx, cb.Message, T(lang, MsgWelcome, b.feeRate*100), MainKeyboard(lang))
	case data == "cancel":
		b.sessions.Clear(userID)
		b.editMessage(ctx, cb.Message, T(lang, MsgWelcome, b.feeRate*100), MainKeyboard(lang))
	case data == "clean":
		b.sessions.Begin(userID, StateWaitKeys)
		b.editMessage(ctx, cb.Message, T(lang, MsgAskKeys), CancelKeyboard(lang))
	case data == "stats":
		b.editMessage(ctx, cb.Message, b.statsText(userID), BackKeyboard(lang))
	case data == "help":
		b.editMessage(ctx, cb.Message, T(lang, MsgHelp), BackKeyboard(lang))
	case data == "lang":
		b.toggleLanguage(ctx, cb, userID)
	case data == "dest:first":
		b.handleDestFirst(ctx, cb, userID)
	case data == "dest:other":
		b.handleDestOther(ctx, cb, userID)
	case strings.HasPrefix(data, "burn:"):
		b.handleBurnToggle(ctx, cb, userID, data)
	case data == "page:prev":
		b.handlePageTurn(ctx, cb, userID, -1)
	case data == "page:next":
		b.handlePageTurn(ctx, cb, userID, 1)
	case data == "page:noop":
		// page indicator button, nothing to do
	case data == "go":
		b.handleGo(ctx, cb, userID)
	default:
		b.log.WithFields(logrus.Fields{"data": data, "user_id": userID}).Warn("Unknown callback")
	}
}

func (b *Bot) toggleLanguage(ctx context.Context, cb *models.CallbackQuery, userID int64) {
	lang := "ru"
	if b.sessions.Language(userID) == "ru" {
		lang = "en"
	}
	b.sessions.SetLanguage(userID, lang)
	b.editMessage(ctx, cb.Message, T(lang, MsgLangSwitched)+"\n\n"+T(lang, MsgWelcome, b.feeRate*100), MainKeyboard(lang))
}

func (b *Bot) handleDestFirst(ctx context.Context, cb *models.CallbackQuery, userID int64) {
	lang := b.sessions.Language(userID)
	session := b.sessions.Get(userID)
	if session == nil || len(session.Owners) == 0 {
		b.editMessage(ctx, cb.Message, T(lang, MsgSessionExpired), MainKeyboard(lang))
		return
	}

	dest := session.Owners[0]
	session.Destination = &dest
	b.proceedAfterDestination(ctx, chatIDOf(cb.Message), userID, session)
}

func (b *Bot) handleDestOther(ctx context.Context, cb *models.CallbackQuery, userID int64) {
	lang := b.sessions.Language(userID)
	session := b.sessions.Get(userID)
	if session == nil {
		b.editMessage(ctx, cb.Message, T(lang, MsgSessionExpired), MainKeyboard(lang))
		return
	}

	session.State = StateWaitDestination
	b.editMessage(ctx, cb.Message, T(lang, MsgAskDestination), CancelKeyboard(lang))
}

// proceedAfterDestination moves to burn selection when any account still
// holds tokens, otherwise starts the settlement straight away.
func (b *Bot) proceedAfterDestination(ctx context.Context, chatID int64, userID int64, session *Session) {
	lang := b.sessions.Language(userID)

	hasHoldings := false
	for _, tok := range session.Tokens {
		if tok.Kind != TokenEmpty {
			hasHoldings = true
			break
		}
	}

	if hasHoldings {
		session.State = StateSelectBurns
		b.sendMessage(ctx, chatID, T(lang, MsgSelectBurns), BurnSelectionKeyboard(lang, session.Tokens, session.Selected(), session.Page()))
		return
	}

	b.runSettlement(ctx, chatID, userID, session)
}

func (b *Bot) handleBurnToggle(ctx context.Context, cb *models.CallbackQuery, userID int64, data string) {
	lang := b.sessions.Language(userID)
	session := b.sessions.Get(userID)
	if session == nil || session.State != StateSelectBurns {
		b.editMessage(ctx, cb.Message, T(lang, MsgSessionExpired), MainKeyboard(lang))
		return
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(data, "burn:"))
	if err != nil || idx < 0 || idx >= len(session.Tokens) {
		return
	}

	if !session.ToggleBurn(idx) {
		return
	}
	b.editMessage(ctx, cb.Message, T(lang, MsgSelectBurns), BurnSelectionKeyboard(lang, session.Tokens, session.Selected(), session.Page()))
}

func (b *Bot) handlePageTurn(ctx context.Context, cb *models.CallbackQuery, userID int64, delta int) {
	lang := b.sessions.Language(userID)
	session := b.sessions.Get(userID)
	if session == nil || session.State != StateSelectBurns {
		b.editMessage(ctx, cb.Message, T(lang, MsgSessionExpired), MainKeyboard(lang))
		return
	}

	if !session.TurnPage(delta, BurnPageCount(session.Tokens)) {
		return
	}
	b.editMessage(ctx, cb.Message, T(lang, MsgSelectBurns), BurnSelectionKeyboard(lang, session.Tokens, session.Selected(), session.Page()))
}

func (b *Bot) handleGo(ctx context.Context, cb *models.CallbackQuery, userID int64) {
	lang := b.sessions.Language(userID)
	session := b.sessions.Get(userID)
	if session == nil {
		b.editMessage(ctx, cb.Message, T(lang, MsgSessionExpired), MainKeyboard(lang))
		return
	}

	b.runSettlement(ctx, chatIDOf(cb.Message), userID, session)
}

// runSettlement reopens the sealed keys, rebuilds the selected records and
// executes the settlement. Identities live only for the duration of this
// call and are wiped on every exit path.
func (b *Bot) runSettlement(ctx context.Context, chatID int64, userID int64, session *Session) {
	lang := b.sessions.Language(userID)
	if !session.BeginSettlement() {
		return
	}

	b.sendMessage(ctx, chatID, T(lang, MsgSettling), nil)

	raw, err := b.cipher.Open(session.SealedKeys)
	if err != nil {
		b.log.WithError(err).WithField("user_id", userID).Error("Failed to unseal session keys")
		b.sendMessage(ctx, chatID, T(lang, MsgSessionExpired), MainKeyboard(lang))
		b.sessions.Clear(userID)
		return
	}

	identities, err := wallet.ParseSecretKeys(string(raw))
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		b.sendMessage(ctx, chatID, T(lang, MsgSessionExpired), MainKeyboard(lang))
		b.sessions.Clear(userID)
		return
	}
	defer wallet.ZeroizeAll(identities)

	req := settle.Request{
		UserID:      userID,
		Identities:  identities,
		Destination: session.Destination,
	}
	selected := session.Selected()
	for i, tok := range session.Tokens {
		rec := scanner.Record{
			Owner:      identities[tok.OwnerIndex],
			Address:    tok.Address,
			Mint:       tok.Mint,
			RawBalance: tok.RawBalance,
			Decimals:   tok.Decimals,
			Symbol:     tok.Symbol,
			UIBalance:  tok.UIBalance,
		}
		switch {
		case tok.Kind == TokenEmpty:
			req.EmptyAccounts = append(req.EmptyAccounts, rec)
		case selected[i]:
			req.BurnTokens = append(req.BurnTokens, rec)
		}
	}

	result, err := b.engine.Settle(ctx, req)
	b.sessions.Clear(userID)

	if err != nil {
		b.log.WithError(err).WithField("user_id", userID).Error("Settlement failed")
		b.sendMessage(ctx, chatID, b.settleFailureText(lang, err), MainKeyboard(lang))
		return
	}

	netSOL := config.ConvertLamportsToSOL(result.NetLamports)
	usdSuffix := ""
	if price := b.rates.SOLToUSD(ctx); price > 0 {
		usdSuffix = T(lang, MsgSettleSummaryUSD, netSOL*price)
	}

	summary := T(lang, MsgSettleSummary,
		result.ClosedAccounts, result.BurnedTokens,
		config.ConvertLamportsToSOL(result.GrossLamports),
		config.ConvertLamportsToSOL(result.FeeLamports),
		netSOL, usdSuffix,
	)
	if result.Feeless {
		summary += T(lang, MsgFeelessNote)
	}

	b.sendMessage(ctx, chatID, summary, MainKeyboard(lang))
}

// --- Helpers ---

func (b *Bot) settleFailureText(lang string, err error) string {
	switch settle.ClassifyFailure(err) {
	case settle.FailureNonzeroBalance:
		return T(lang, MsgSettleNonzero)
	case settle.FailureFrozenToken:
		return T(lang, MsgSettleFrozen)
	case settle.FailureInsufficientFunds:
		return T(lang, MsgSettleNoFunds)
	default:
		return T(lang, MsgSettleFailed, err.Error())
	}
}

func (b *Bot) statsText(userID int64) string {
	lang := b.sessions.Language(userID)
	if b.stats == nil {
		return T(lang, MsgStatsEmpty)
	}

	stats, err := b.stats.Stats(userID)
	if err != nil || stats.Settlements == 0 {
		return T(lang, MsgStatsEmpty)
	}

	return T(lang, MsgStats,
		stats.Settlements, stats.WalletsCleaned, stats.ClosedAccounts, stats.BurnedTokens,
		config.ConvertLamportsToSOL(stats.GrossLamports),
		config.ConvertLamportsToSOL(stats.NetLamports),
	)
}

// tokenEntries flattens a scan result into session entries, resolving each
// record's owner to its index in the key parse order.
func (b *Bot) tokenEntries(owners []solana.PublicKey, result *scanner.Result) []TokenEntry {
	var entries []TokenEntry

	add := func(records []scanner.Record, kind TokenKind) {
		for _, rec := range records {
			entry := TokenEntry{
				OwnerIndex: 0,
				Address:    rec.Address,
				Mint:       rec.Mint,
				RawBalance: rec.RawBalance,
				Decimals:   rec.Decimals,
				Symbol:     rec.Symbol,
				UIBalance:  rec.UIBalance,
				Kind:       kind,
			}
			ownerKey := rec.Owner.PublicKey()
			for i, pk := range owners {
				if pk.Equals(ownerKey) {
					entry.OwnerIndex = i
					break
				}
			}
			entries = append(entries, entry)
		}
	}

	add(result.Empty, TokenEmpty)
	add(result.WithBalance, TokenBalance)
	add(result.Inactive, TokenInactive)
	return entries
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		b.log.WithError(err).Error("Failed to send message")
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.bot.EditMessageText(ctx, params); err != nil {
		b.log.WithError(err).Error("Failed to edit message")
	}
}

func chatIDOf(msg models.MaybeInaccessibleMessage) int64 {
	if msg.Message == nil {
		return 0
	}
	return msg.Message.Chat.ID
}
