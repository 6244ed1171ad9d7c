// Package commands – the coin economy.
//
// Balances live on the user row and every mutation goes through
// repo.AddBalance, whose guard keeps balances non-negative under concurrent
// bets. Game odds are fixed constants; the house always has an edge.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/domain"
	"github.com/nimbusbot/nimbus/internal/repo"
	"github.com/nimbusbot/nimbus/internal/sysutil"
)

// randIntn is swappable in tests for deterministic game outcomes.
var randIntn = rand.Intn

const (
	slotSymbolCount = 6
	slotTripleMul   = 10
	slotPairMul     = 2
	diceWinMul      = 5
)

var slotSymbols = []string{"🍒", "🍋", "🍇", "🔔", "⭐", "💎"}

func economyDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "balance",
			Aliases:     []string{"bal"},
			Category:    "economy",
			Description: "Show your coin balance.",
			Usage:       "{prefix}balance",
			Run:         runBalance,
		},
		{
			Name:        "rich",
			Aliases:     []string{"baltop"},
			Category:    "economy",
			Description: "Show the richest users.",
			Usage:       "{prefix}rich",
			Cooldown:    10 * time.Second,
			Run:         runRich,
		},
		{
			Name:        "daily",
			Aliases:     []string{"claim"},
			Category:    "economy",
			Description: "Claim your daily coin reward. Streaks pay extra.",
			Usage:       "{prefix}daily",
			Run:         runDaily,
		},
		{
			Name:        "pay",
			Category:    "economy",
			Description: "Transfer coins to another user.",
			Usage:       "{prefix}pay <user> <amount>",
			Cooldown:    10 * time.Second,
			Run:         runPay,
		},
		{
			Name:        "slot",
			Category:    "economy",
			Description: "Spin the slot machine.",
			Usage:       "{prefix}slot <bet>",
			Cooldown:    5 * time.Second,
			Run:         runSlot,
		},
		{
			Name:        "coinflip",
			Aliases:     []string{"cf"},
			Category:    "economy",
			Description: "Bet on a coin flip.",
			Usage:       "{prefix}coinflip <bet> <heads|tails>",
			Cooldown:    5 * time.Second,
			Run:         runCoinflip,
		},
		{
			Name:        "dice",
			Category:    "economy",
			Description: "Bet on a die roll. Exact guess pays 5x.",
			Usage:       "{prefix}dice <bet> <1-6>",
			Cooldown:    5 * time.Second,
			Run:         runDice,
		},
	}
}

func runBalance(ctx context.Context, c *bot.Context) error {
	u, err := repo.GetOrCreateUser(ctx, c.DB, c.Event.SenderID, c.Event.SenderName, c.Config.Economy.StartingBalance)
	if err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("💰 %s, you have %d coins.", displayName(u, c.Event.SenderID), u.Balance))
	return nil
}

func runRich(ctx context.Context, c *bot.Context) error {
	users, err := repo.TopBalances(ctx, c.DB, 10)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		c.Reply(ctx, "Nobody has any coins yet.")
		return nil
	}
	var b strings.Builder
	b.WriteString("💰 Richest users\n")
	for i, u := range users {
		fmt.Fprintf(&b, "%d. %s — %d coins\n", i+1, displayName(&u, u.PlatformID), u.Balance)
	}
	c.Reply(ctx, strings.TrimRight(b.String(), "\n"))
	return nil
}

// dailyOutcome is the result of applying one claim attempt to a user.
type dailyOutcome struct {
	claimed bool
	reward  int64
	streak  int
	wait    time.Duration // time until the next claim when already claimed
}

// applyDailyClaim mutates u per the claim rules and reports what happened.
// A claim inside the window is rejected. A claim within twice the window of
// the previous one extends the streak; a longer gap resets it to day one.
func applyDailyClaim(u *domain.User, eco config.EconomyConfig, now time.Time) dailyOutcome {
	if !u.LastDailyClaim.IsZero() {
		since := now.Sub(u.LastDailyClaim)
		if since < eco.DailyWindow {
			return dailyOutcome{wait: eco.DailyWindow - since}
		}
		if since < 2*eco.DailyWindow {
			u.DailyStreak++
		} else {
			u.DailyStreak = 1
		}
	} else {
		u.DailyStreak = 1
	}
	reward := eco.DailyReward + eco.DailyStreakBonus*int64(u.DailyStreak-1)
	u.Balance += reward
	u.LastDailyClaim = now
	return dailyOutcome{claimed: true, reward: reward, streak: u.DailyStreak}
}

func runDaily(ctx context.Context, c *bot.Context) error {
	u, err := repo.GetOrCreateUser(ctx, c.DB, c.Event.SenderID, c.Event.SenderName, c.Config.Economy.StartingBalance)
	if err != nil {
		return err
	}
	out := applyDailyClaim(u, c.Config.Economy, time.Now().UTC())
	if !out.claimed {
		c.Reply(ctx, fmt.Sprintf("You already claimed today. Come back in %s.", formatDuration(out.wait)))
		return nil
	}
	if err := repo.SaveUser(ctx, c.DB, u); err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("✅ You claimed %d coins! Streak: day %d. Balance: %d.", out.reward, out.streak, u.Balance))
	return nil
}

func runPay(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	amount, err := parseBet(c.Arg(1))
	if target == "" || err != nil {
		c.Reply(ctx, "Usage: "+renderUsage(c, "pay <user> <amount>"))
		return nil
	}
	if target == c.Event.SenderID {
		c.Reply(ctx, "Paying yourself moves no coins.")
		return nil
	}
	// Ensure both rows exist before moving anything.
	if _, err := repo.GetOrCreateUser(ctx, c.DB, c.Event.SenderID, c.Event.SenderName, c.Config.Economy.StartingBalance); err != nil {
		return err
	}
	if _, err := repo.GetOrCreateUser(ctx, c.DB, target, "", c.Config.Economy.StartingBalance); err != nil {
		return err
	}
	if err := repo.AddBalance(ctx, c.DB, c.Event.SenderID, -amount); err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			c.Reply(ctx, "You don't have that many coins.")
			return nil
		}
		return err
	}
	if err := repo.AddBalance(ctx, c.DB, target, amount); err != nil {
		// Refund the debit so coins are never destroyed.
		_ = repo.AddBalance(ctx, c.DB, c.Event.SenderID, amount)
		return fmt.Errorf("pay credit: %w", err)
	}
	c.Reply(ctx, fmt.Sprintf("💸 Sent %d coins to %s.", amount, target))
	return nil
}

func runSlot(ctx context.Context, c *bot.Context) error {
	bet, err := placeBet(ctx, c, c.Arg(0), "slot <bet>")
	if err != nil || bet == 0 {
		return err
	}
	reels := []string{
		slotSymbols[randIntn(slotSymbolCount)],
		slotSymbols[randIntn(slotSymbolCount)],
		slotSymbols[randIntn(slotSymbolCount)],
	}
	var payout int64
	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		payout = bet * slotTripleMul
	case reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2]:
		payout = bet * slotPairMul
	}
	board := strings.Join(reels, " | ")
	if payout == 0 {
		c.Reply(ctx, fmt.Sprintf("🎰 [ %s ]\nNo luck. You lost %d coins.", board, bet))
		return nil
	}
	if err := repo.AddBalance(ctx, c.DB, c.Event.SenderID, payout); err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("🎰 [ %s ]\nWinner! You won %d coins.", board, payout))
	return nil
}

func runCoinflip(ctx context.Context, c *bot.Context) error {
	guess := strings.ToLower(c.Arg(1))
	if guess != "heads" && guess != "tails" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "coinflip <bet> <heads|tails>"))
		return nil
	}
	bet, err := placeBet(ctx, c, c.Arg(0), "coinflip <bet> <heads|tails>")
	if err != nil || bet == 0 {
		return err
	}
	result := "heads"
	if randIntn(2) == 1 {
		result = "tails"
	}
	if result != guess {
		c.Reply(ctx, fmt.Sprintf("🪙 It's %s. You lost %d coins.", result, bet))
		return nil
	}
	if err := repo.AddBalance(ctx, c.DB, c.Event.SenderID, bet*2); err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("🪙 It's %s! You won %d coins.", result, bet))
	return nil
}

func runDice(ctx context.Context, c *bot.Context) error {
	guess, err := strconv.Atoi(c.Arg(1))
	if err != nil || guess < 1 || guess > 6 {
		c.Reply(ctx, "Usage: "+renderUsage(c, "dice <bet> <1-6>"))
		return nil
	}
	bet, err := placeBet(ctx, c, c.Arg(0), "dice <bet> <1-6>")
	if err != nil || bet == 0 {
		return err
	}
	rolled := randIntn(6) + 1
	if rolled != guess {
		c.Reply(ctx, fmt.Sprintf("🎲 Rolled a %d. You lost %d coins.", rolled, bet))
		return nil
	}
	if err := repo.AddBalance(ctx, c.DB, c.Event.SenderID, bet*(diceWinMul+1)); err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("🎲 Rolled a %d! You won %d coins.", rolled, bet*diceWinMul))
	return nil
}

// placeBet validates the bet argument and debits it up front. A zero return
// with nil error means the bet was rejected and the user already got a reply.
func placeBet(ctx context.Context, c *bot.Context, arg, usage string) (int64, error) {
	bet, err := parseBet(arg)
	if err != nil {
		c.Reply(ctx, "Usage: "+renderUsage(c, usage))
		return 0, nil
	}
	if _, err := repo.GetOrCreateUser(ctx, c.DB, c.Event.SenderID, c.Event.SenderName, c.Config.Economy.StartingBalance); err != nil {
		return 0, err
	}
	if err := repo.AddBalance(ctx, c.DB, c.Event.SenderID, -bet); err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			c.Reply(ctx, "You don't have that many coins.")
			return 0, nil
		}
		return 0, err
	}
	return bet, nil
}

func parseBet(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("bet must be positive")
	}
	return n, nil
}

func displayName(u *domain.User, fallback string) string {
	return sysutil.FirstNonEmpty(u.Name, fallback)
}

// formatDuration renders a wait as "3h 12m" (or "45m", or "30s" under a
// minute).
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds())+1)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
