package slots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slotbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

// RegisterSpinCommand describes the /spin slash command.
func RegisterSpinCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "spin",
		Description: "Spin the slot machine!",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "stake",
				Description: "Bet tier (10, 25, 50, 100) or \"all\"",
				Required:    false,
			},
		},
	}
}

// HandleSpinCommand handles /spin. The handler is the chat-surface edge:
// it extracts the account id and raw stake token, runs the orchestrator,
// and renders the settlement. Failures answer with a short message rather
// than leaking internals.
func HandleSpinCommand(o *Orchestrator, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	account := i.Member.User.ID

	stakeToken := ""
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		stakeToken = options[0].StringValue()
	}

	if err := utils.DeferInteractionResponse(s, i, false); err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		settlement, err := o.Spin(ctx, account, stakeToken)
		if err != nil {
			embed := utils.CreateBrandedEmbed("🎰 Slot Machine", err.Error(), 0xe74c3c)
			if err := utils.UpdateInteractionResponse(s, i, embed); err != nil {
				o.Log.WithField("error", err).Warn("failed to answer spin interaction")
			}
			return
		}

		embed := buildSettlementEmbed(settlement)
		if err := utils.UpdateInteractionResponse(s, i, embed); err != nil {
			o.Log.WithField("error", err).Warn("failed to answer spin interaction")
		}
	}()
}

func buildSettlementEmbed(settlement *Settlement) *discordgo.MessageEmbed {
	color := 0xe74c3c
	if settlement.PointsDelta >= 0 {
		color = 0x2ecc71
	}

	desc := fmt.Sprintf("```\n%s\n```\n%s", settlement.Grid.Format(), settlement.Message)
	embed := utils.CreateBrandedEmbed("🎰 Slot Machine", desc, color)

	stakeLine := fmt.Sprintf("%s %s", utils.FormatChips(settlement.Stake), utils.ChipsEmoji)
	if settlement.FreeSpinUsed {
		stakeLine = "Free spin!"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Stake", Value: stakeLine, Inline: true},
		&discordgo.MessageEmbedField{
			Name:   deltaLabel(settlement.PointsDelta),
			Value:  fmt.Sprintf("%s %s", utils.FormatChips(settlement.PointsDelta), utils.ChipsEmoji),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "Balance",
			Value:  fmt.Sprintf("%s %s", utils.FormatChips(settlement.NewBalance), utils.ChipsEmoji),
			Inline: true,
		},
	)

	if settlement.FreeSpinsAwarded > 0 || settlement.FreeSpinsLeft > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Free Spins",
			Value:  fmt.Sprintf("%d queued", settlement.FreeSpinsLeft),
			Inline: true,
		})
	}

	if len(settlement.Extra) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Notes",
			Value: strings.Join(settlement.Extra, "\n"),
		})
	}
	return embed
}

func deltaLabel(delta int64) string {
	if delta >= 0 {
		return "Profit"
	}
	return "Loss"
}
