// Package commands – toy commands.
//
// Ship and rate scores are derived from an FNV hash of the normalized input
// so repeated invocations give the same answer; anything else invites
// endless rerolling.
package commands

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/nimbusbot/nimbus/internal/bot"
)

var eightBallAnswers = []string{
	"It is certain.",
	"Without a doubt.",
	"Yes, definitely.",
	"Most likely.",
	"Signs point to yes.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Don't count on it.",
	"My reply is no.",
	"Outlook not so good.",
	"Very doubtful.",
}

var jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"I told my computer I needed a break, and it said: no problem, I'll go to sleep.",
	"There are 10 types of people: those who understand binary and those who don't.",
	"A SQL query walks into a bar, walks up to two tables and asks: can I join you?",
	"Why did the developer go broke? Because they used up all their cache.",
	"I would tell you a UDP joke, but you might not get it.",
}

func funDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "8ball",
			Category:    "fun",
			Description: "Consult the magic 8-ball.",
			Usage:       "{prefix}8ball <question>",
			Run:         run8Ball,
		},
		{
			Name:        "choose",
			Category:    "fun",
			Description: "Pick one of several options.",
			Usage:       "{prefix}choose <a> | <b> | <c>",
			Run:         runChoose,
		},
		{
			Name:        "ship",
			Category:    "fun",
			Description: "Measure the compatibility of two people.",
			Usage:       "{prefix}ship <name> <name>",
			Run:         runShip,
		},
		{
			Name:        "rate",
			Category:    "fun",
			Description: "Rate anything out of 10.",
			Usage:       "{prefix}rate <thing>",
			Run:         runRate,
		},
		{
			Name:        "reverse",
			Category:    "fun",
			Description: "Reverse your text.",
			Usage:       "{prefix}reverse <text>",
			Run:         runReverse,
		},
		{
			Name:        "mock",
			Category:    "fun",
			Description: "MaKe TeXt LoOk LiKe ThIs.",
			Usage:       "{prefix}mock <text>",
			Run:         runMock,
		},
		{
			Name:        "roll",
			Category:    "fun",
			Description: "Roll dice, NdM style.",
			Usage:       "{prefix}roll [NdM]",
			Run:         runRoll,
		},
		{
			Name:        "flip",
			Category:    "fun",
			Description: "Flip a coin.",
			Usage:       "{prefix}flip",
			Run: func(ctx context.Context, c *bot.Context) error {
				side := "Heads"
				if randIntn(2) == 1 {
					side = "Tails"
				}
				c.Reply(ctx, "🪙 "+side+"!")
				return nil
			},
		},
		{
			Name:        "joke",
			Category:    "fun",
			Description: "Tell a joke.",
			Usage:       "{prefix}joke",
			Run: func(ctx context.Context, c *bot.Context) error {
				c.Reply(ctx, jokes[randIntn(len(jokes))])
				return nil
			},
		},
	}
}

func run8Ball(ctx context.Context, c *bot.Context) error {
	if c.Rest(0) == "" {
		c.Reply(ctx, "Ask the 8-ball an actual question.")
		return nil
	}
	c.Reply(ctx, "🎱 "+eightBallAnswers[randIntn(len(eightBallAnswers))])
	return nil
}

func runChoose(ctx context.Context, c *bot.Context) error {
	raw := c.Rest(0)
	options := splitOptions(raw)
	if len(options) < 2 {
		c.Reply(ctx, "Give me at least two options, separated by | or spaces.")
		return nil
	}
	c.Reply(ctx, "I choose: "+options[randIntn(len(options))])
	return nil
}

// splitOptions splits on "|" when present, otherwise on whitespace.
func splitOptions(raw string) []string {
	var parts []string
	if strings.Contains(raw, "|") {
		parts = strings.Split(raw, "|")
	} else {
		parts = strings.Fields(raw)
	}
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func runShip(ctx context.Context, c *bot.Context) error {
	a, b := c.Arg(0), c.Arg(1)
	if a == "" || b == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "ship <name> <name>"))
		return nil
	}
	pct := stableScore(a, b, 101)
	bar := strings.Repeat("█", pct/10) + strings.Repeat("░", 10-pct/10)
	verdict := "Not meant to be. 💔"
	switch {
	case pct >= 80:
		verdict = "A match made in heaven! 💞"
	case pct >= 50:
		verdict = "There's something there. 💕"
	case pct >= 25:
		verdict = "Could work, with effort. 💛"
	}
	caser := cases.Title(language.English)
	c.Reply(ctx, fmt.Sprintf("💘 %s × %s\n[%s] %d%%\n%s", caser.String(a), caser.String(b), bar, pct, verdict))
	return nil
}

func runRate(ctx context.Context, c *bot.Context) error {
	thing := c.Rest(0)
	if thing == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "rate <thing>"))
		return nil
	}
	c.Reply(ctx, fmt.Sprintf("I'd give %q a solid %d/10.", thing, stableScore(thing, "", 11)))
	return nil
}

// stableScore hashes the normalized, order-independent inputs into [0,mod).
func stableScore(a, b string, mod int) int {
	na := strings.ToLower(strings.TrimSpace(norm.NFC.String(a)))
	nb := strings.ToLower(strings.TrimSpace(norm.NFC.String(b)))
	pair := []string{na, nb}
	sort.Strings(pair)
	h := fnv.New32a()
	h.Write([]byte(pair[0] + "\x00" + pair[1]))
	return int(h.Sum32() % uint32(mod))
}

func runReverse(ctx context.Context, c *bot.Context) error {
	text := c.Rest(0)
	if text == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "reverse <text>"))
		return nil
	}
	runes := []rune(norm.NFC.String(text))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	c.Reply(ctx, string(runes))
	return nil
}

var (
	mockUpper = cases.Upper(language.Und)
	mockLower = cases.Lower(language.Und)
)

func runMock(ctx context.Context, c *bot.Context) error {
	text := c.Rest(0)
	if text == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "mock <text>"))
		return nil
	}
	c.Reply(ctx, mockCase(text))
	return nil
}

// mockCase alternates letter casing across the string, skipping non-letters
// so punctuation does not break the rhythm.
func mockCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := true
	for _, r := range s {
		rs := string(r)
		switch {
		case mockUpper.String(rs) == mockLower.String(rs):
			b.WriteString(rs) // not a cased letter
		case upper:
			b.WriteString(mockUpper.String(rs))
			upper = false
		default:
			b.WriteString(mockLower.String(rs))
			upper = true
		}
	}
	return b.String()
}

func runRoll(ctx context.Context, c *bot.Context) error {
	count, sides := 1, 6
	if arg := c.Arg(0); arg != "" {
		var ok bool
		count, sides, ok = parseDice(arg)
		if !ok {
			c.Reply(ctx, "Usage: "+renderUsage(c, "roll [NdM], e.g. 2d20"))
			return nil
		}
	}
	total := 0
	rolls := make([]string, count)
	for i := 0; i < count; i++ {
		r := randIntn(sides) + 1
		total += r
		rolls[i] = strconv.Itoa(r)
	}
	if count == 1 {
		c.Reply(ctx, fmt.Sprintf("🎲 You rolled a %d (d%d).", total, sides))
		return nil
	}
	c.Reply(ctx, fmt.Sprintf("🎲 %s = %d (%dd%d)", strings.Join(rolls, " + "), total, count, sides))
	return nil
}

// parseDice accepts "NdM", "dM", or a bare side count "M".
func parseDice(s string) (count, sides int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	count, sides = 1, 6
	if n, err := strconv.Atoi(s); err == nil {
		if n < 2 || n > 1000 {
			return 0, 0, false
		}
		return 1, n, true
	}
	parts := strings.SplitN(s, "d", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	if parts[0] != "" {
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 1 || n > 20 {
			return 0, 0, false
		}
		count = n
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 2 || n > 1000 {
		return 0, 0, false
	}
	sides = n
	return count, sides, true
}
