package cogs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"slotbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// ShopItem is one purchasable catalog entry. Grant builds the effect the
// purchase installs; the catalog sets prices and per-kind parameters.
type ShopItem struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Grant       func(now time.Time) utils.ActiveEffect
}

// ShopCatalog maps item ids to their catalog entries. The weekly purchase
// limit applies per item.
var ShopCatalog = map[string]ShopItem{
	utils.EffectLuckyCharm: {
		ID:          utils.EffectLuckyCharm,
		Name:        "Lucky Charm",
		Description: "Stacks +4% special-symbol chance per level (max 5), lasts a day per grant.",
		Price:       400,
		Grant: func(now time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{
				ID:        utils.EffectLuckyCharm,
				Kind:      utils.EffectStacking,
				ExpiresAt: now.Add(24 * time.Hour),
			}
		},
	},
	utils.EffectPairToken: {
		ID:          utils.EffectPairToken,
		Name:        "Pair Token",
		Description: "Your next spin is guaranteed at least a matching pair.",
		Price:       150,
		Grant: func(time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{ID: utils.EffectPairToken, Kind: utils.EffectOneShot}
		},
	},
	utils.EffectWildToken: {
		ID:          utils.EffectWildToken,
		Name:        "Wild Token",
		Description: "Places a wild on the payline of your next spin.",
		Price:       250,
		Grant: func(time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{ID: utils.EffectWildToken, Kind: utils.EffectOneShot}
		},
	},
	utils.EffectDoubleToken: {
		ID:          utils.EffectDoubleToken,
		Name:        "Double Token",
		Description: "Doubles the payout of your next winning spin.",
		Price:       300,
		Grant: func(time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{ID: utils.EffectDoubleToken, Kind: utils.EffectOneShot}
		},
	},
	utils.EffectSymbolBoost: {
		ID:          utils.EffectSymbolBoost,
		Name:        "Star Boost",
		Description: "Doubles your next win if ⭐ is the winning symbol.",
		Price:       100,
		Grant: func(time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{ID: utils.EffectSymbolBoost, Kind: utils.EffectOneShot, Symbol: "⭐"}
		},
	},
	utils.EffectFortune: {
		ID:          utils.EffectFortune,
		Name:        "Fortune Hour",
		Description: "+30% on every win for an hour.",
		Price:       500,
		Grant: func(now time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{
				ID:        utils.EffectFortune,
				Kind:      utils.EffectTimed,
				ExpiresAt: now.Add(time.Hour),
			}
		},
	},
	utils.EffectHighRoller: {
		ID:          utils.EffectHighRoller,
		Name:        "High Roller Pass",
		Description: "Doubles wins of 200+ for an hour.",
		Price:       600,
		Grant: func(now time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{
				ID:        utils.EffectHighRoller,
				Kind:      utils.EffectTimed,
				ExpiresAt: now.Add(time.Hour),
			}
		},
	},
	utils.EffectAffinity: {
		ID:          utils.EffectAffinity,
		Name:        "Cherry Affinity",
		Description: "Biases the reels toward 🍒 for your next 5 spins.",
		Price:       200,
		Grant: func(now time.Time) utils.ActiveEffect {
			return utils.ActiveEffect{
				ID:        utils.EffectAffinity,
				Kind:      utils.EffectLimitedUses,
				UsesLeft:  5,
				Symbol:    "🍒",
				ExpiresAt: now.Add(24 * time.Hour),
			}
		},
	},
}

// Shop wires the catalog to the ledger, effect store, and purchase limiter.
type Shop struct {
	Ledger  *utils.Ledger
	Effects *utils.EffectStore
	Limiter *utils.PurchaseLimiter
	Log     *logrus.Entry
}

func NewShop(l *utils.Ledger, limiter *utils.PurchaseLimiter, log *logrus.Entry) *Shop {
	return &Shop{
		Ledger:  l,
		Effects: utils.NewEffectStore(l),
		Limiter: limiter,
		Log:     log,
	}
}

// Buy purchases one catalog item: cap check, payment, then the effect grant.
// The cap is counted before chips move so a capped purchase costs nothing.
func (sh *Shop) Buy(ctx context.Context, account, itemID string) (*ShopItem, error) {
	item, ok := ShopCatalog[itemID]
	if !ok {
		return nil, fmt.Errorf("no such item: %s", itemID)
	}

	if sh.Ledger.Balance(ctx, account) < item.Price {
		return nil, fmt.Errorf("you need %s %s for %s", utils.FormatChips(item.Price), utils.ChipsEmoji, item.Name)
	}

	count, err := sh.Limiter.Increment(ctx, account, item.ID)
	if errors.Is(err, utils.ErrLimitReached) {
		return nil, fmt.Errorf("you've already bought %s %d times this week", item.Name, sh.Limiter.Cap)
	}

	sh.Ledger.AdjustBalance(ctx, account, -item.Price)
	sh.Ledger.AdjustBank(ctx, item.Price)
	sh.Effects.Grant(ctx, account, item.Grant(time.Now()))

	sh.Log.WithFields(logrus.Fields{
		"account": account,
		"item":    item.ID,
		"count":   count,
	}).Info("shop purchase")
	return &item, nil
}

// RegisterShopCommand describes the /shop slash command.
func RegisterShopCommand() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ShopCatalog))
	for _, item := range sortedCatalog() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%s)", item.Name, utils.FormatChips(item.Price)),
			Value: item.ID,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        "shop",
		Description: "Browse or buy slot machine boosts",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "item",
				Description: "Item to buy; omit to browse",
				Required:    false,
				Choices:     choices,
			},
		},
	}
}

// HandleShopCommand handles /shop: without an item it renders the catalog,
// with one it runs the purchase.
func HandleShopCommand(sh *Shop, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	account := i.Member.User.ID

	itemID := ""
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		itemID = options[0].StringValue()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if itemID == "" {
		embed := buildCatalogEmbed(ctx, sh, account)
		if err := utils.SendInteractionResponse(s, i, embed, true); err != nil {
			sh.Log.WithField("error", err).Warn("failed to answer shop interaction")
		}
		return
	}

	item, err := sh.Buy(ctx, account, itemID)
	if err != nil {
		embed := utils.CreateBrandedEmbed("🛒 Shop", err.Error(), 0xe74c3c)
		if err := utils.SendInteractionResponse(s, i, embed, true); err != nil {
			sh.Log.WithField("error", err).Warn("failed to answer shop interaction")
		}
		return
	}

	desc := fmt.Sprintf("You bought **%s** for %s %s.\n%s",
		item.Name, utils.FormatChips(item.Price), utils.ChipsEmoji, item.Description)
	embed := utils.CreateBrandedEmbed("🛒 Shop", desc, 0x2ecc71)
	if err := utils.SendInteractionResponse(s, i, embed, true); err != nil {
		sh.Log.WithField("error", err).Warn("failed to answer shop interaction")
	}
}

func buildCatalogEmbed(ctx context.Context, sh *Shop, account string) *discordgo.MessageEmbed {
	embed := utils.CreateBrandedEmbed("🛒 Shop",
		fmt.Sprintf("Each item can be bought %d times per week.", sh.Limiter.Cap), utils.BotColor)

	for _, item := range sortedCatalog() {
		bought := sh.Limiter.Count(ctx, account, item.ID)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s · %s %s", item.Name, utils.FormatChips(item.Price), utils.ChipsEmoji),
			Value: fmt.Sprintf("%s\n`/shop item:%s` (%d/%d this week)", item.Description, item.ID, bought, sh.Limiter.Cap),
		})
	}
	return embed
}

func sortedCatalog() []ShopItem {
	items := make([]ShopItem, 0, len(ShopCatalog))
	for _, item := range ShopCatalog {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Price != items[j].Price {
			return items[i].Price < items[j].Price
		}
		return strings.Compare(items[i].ID, items[j].ID) < 0
	})
	return items
}
