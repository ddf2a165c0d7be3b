package cogs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"slotbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Economy bundles the read-only account commands: balance, stats, and the
// free-spin queue view.
type Economy struct {
	Ledger    *utils.Ledger
	Stats     *utils.StatsStore
	FreeSpins *utils.FreeSpinStore
	Effects   *utils.EffectStore
	Log       *logrus.Entry
}

func NewEconomy(l *utils.Ledger, log *logrus.Entry) *Economy {
	return &Economy{
		Ledger:    l,
		Stats:     utils.NewStatsStore(l),
		FreeSpins: utils.NewFreeSpinStore(l),
		Effects:   utils.NewEffectStore(l),
		Log:       log,
	}
}

// RegisterBalanceCommand describes the /balance slash command.
func RegisterBalanceCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "balance",
		Description: "Check your chip balance",
	}
}

// RegisterStatsCommand describes the /stats slash command.
func RegisterStatsCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "stats",
		Description: "Your slot machine record",
	}
}

// HandleBalanceCommand handles /balance. A first lookup creates the account
// with the starting balance.
func HandleBalanceCommand(e *Economy, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	account := i.Member.User.ID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balance := e.Ledger.Balance(ctx, account)
	queued := e.FreeSpins.Queue(ctx, account).Total()

	desc := fmt.Sprintf("You have **%s** %s.", utils.FormatChips(balance), utils.ChipsEmoji)
	if queued > 0 {
		desc += fmt.Sprintf("\n%d free spin(s) queued.", queued)
	}
	if lines := activeEffectLines(e.Effects.Active(ctx, account)); len(lines) > 0 {
		desc += "\n\nActive boosts:\n" + strings.Join(lines, "\n")
	}

	embed := utils.CreateBrandedEmbed("💰 Balance", desc, utils.BotColor)
	if err := utils.SendInteractionResponse(s, i, embed, true); err != nil {
		e.Log.WithField("error", err).Warn("failed to answer balance interaction")
	}
}

// HandleStatsCommand handles /stats.
func HandleStatsCommand(e *Economy, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	account := i.Member.User.ID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := e.Stats.Current(ctx, account)

	embed := utils.CreateBrandedEmbed("📊 Stats", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Spins", Value: fmt.Sprintf("%d", stats.Spins), Inline: true},
		{Name: "Wins", Value: fmt.Sprintf("%d", stats.Wins), Inline: true},
		{Name: "Losses", Value: fmt.Sprintf("%d", stats.Losses), Inline: true},
		{Name: "Wagered", Value: fmt.Sprintf("%s %s", utils.FormatChips(stats.Wagered), utils.ChipsEmoji), Inline: true},
		{Name: "Won", Value: fmt.Sprintf("%s %s", utils.FormatChips(stats.Won), utils.ChipsEmoji), Inline: true},
		{Name: "Net", Value: fmt.Sprintf("%s %s", utils.FormatChips(stats.Won-stats.Wagered), utils.ChipsEmoji), Inline: true},
	}

	if err := utils.SendInteractionResponse(s, i, embed, true); err != nil {
		e.Log.WithField("error", err).Warn("failed to answer stats interaction")
	}
}

func activeEffectLines(effects map[string]utils.ActiveEffect) []string {
	var lines []string
	for _, effect := range effects {
		item, ok := ShopCatalog[effect.ID]
		if !ok {
			continue
		}
		line := "• " + item.Name
		switch effect.Kind {
		case utils.EffectStacking:
			line += fmt.Sprintf(" (level %d)", effect.StackLevel)
		case utils.EffectLimitedUses:
			line += fmt.Sprintf(" (%d uses left)", effect.UsesLeft)
		case utils.EffectTimed:
			line += fmt.Sprintf(" (until <t:%d:t>)", effect.ExpiresAt.Unix())
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}
