package cogs

import (
	"context"
	"fmt"
	"time"

	"slotbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Duels is the chat surface over the duel scheduling actor.
type Duels struct {
	Manager *utils.DuelManager
	Log     *logrus.Entry
}

func NewDuels(m *utils.DuelManager, log *logrus.Entry) *Duels {
	return &Duels{Manager: m, Log: log}
}

// RegisterDuelCommand describes the /duel slash command with its
// challenge/accept/decline subcommands.
func RegisterDuelCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "duel",
		Description: "Chip duels: winner takes the pot plus a bonus",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "challenge",
				Description: "Challenge another player",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "opponent",
						Description: "Who to challenge",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "stake",
						Description: "Chips each side puts up",
						Required:    true,
						MinValue:    float64Ptr(1),
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "accept",
				Description: "Accept the duel waiting on you",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "decline",
				Description: "Decline the duel waiting on you",
			},
		},
	}
}

// HandleDuelCommand routes the /duel subcommands.
func HandleDuelCommand(d *Duels, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	account := i.Member.User.ID

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var embed *discordgo.MessageEmbed
	switch sub.Name {
	case "challenge":
		embed = d.handleChallenge(ctx, s, account, sub)
	case "accept":
		embed = d.handleAccept(ctx, account)
	case "decline":
		embed = d.handleDecline(ctx, account)
	default:
		return
	}

	if err := utils.SendInteractionResponse(s, i, embed, false); err != nil {
		d.Log.WithField("error", err).Warn("failed to answer duel interaction")
	}
}

func (d *Duels) handleChallenge(ctx context.Context, s *discordgo.Session, account string, sub *discordgo.ApplicationCommandInteractionDataOption) *discordgo.MessageEmbed {
	var target string
	var stake int64
	for _, opt := range sub.Options {
		switch opt.Name {
		case "opponent":
			target = opt.UserValue(s).ID
		case "stake":
			stake = opt.IntValue()
		}
	}

	challenge, err := d.Manager.Challenge(ctx, account, target, stake)
	if err != nil {
		return utils.CreateBrandedEmbed("⚔️ Duel", err.Error(), 0xe74c3c)
	}

	desc := fmt.Sprintf("<@%s> challenged <@%s> for %s %s!\nThey have %s to `/duel accept` or `/duel decline`.",
		challenge.Challenger, challenge.Target,
		utils.FormatChips(challenge.Stake), utils.ChipsEmoji,
		d.Manager.Window)
	return utils.CreateBrandedEmbed("⚔️ Duel", desc, utils.BotColor)
}

func (d *Duels) handleAccept(ctx context.Context, account string) *discordgo.MessageEmbed {
	result, err := d.Manager.Accept(ctx, account)
	if err != nil {
		return utils.CreateBrandedEmbed("⚔️ Duel", err.Error(), 0xe74c3c)
	}

	desc := fmt.Sprintf("<@%s> wins the duel and takes %s %s! Better luck next time, <@%s>.",
		result.Winner, utils.FormatChips(result.Pot), utils.ChipsEmoji, result.Loser)
	return utils.CreateBrandedEmbed("⚔️ Duel", desc, 0x2ecc71)
}

func (d *Duels) handleDecline(ctx context.Context, account string) *discordgo.MessageEmbed {
	challenge, err := d.Manager.Decline(ctx, account)
	if err != nil {
		return utils.CreateBrandedEmbed("⚔️ Duel", err.Error(), 0xe74c3c)
	}

	desc := fmt.Sprintf("<@%s> declined the duel. <@%s> got their %s %s back.",
		challenge.Target, challenge.Challenger,
		utils.FormatChips(challenge.Stake), utils.ChipsEmoji)
	return utils.CreateBrandedEmbed("⚔️ Duel", desc, utils.BotColor)
}

func float64Ptr(v float64) *float64 {
	return &v
}
