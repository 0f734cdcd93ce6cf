package services

import (
	"crowned-trader/models"
	"crowned-trader/selector"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	colorSelected = 0x2ECC71
	colorFailed   = 0xE67E22
)

// DiscordNotifier posts selection outcomes to a Discord channel webhook
type DiscordNotifier struct {
	session   *discordgo.Session
	webhookID string
	token     string
	username  string
	logger    *logrus.Logger
}

// NewDiscordNotifier creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &DiscordNotifier{
		session:   session,
		webhookID: id,
		token:     token,
		username:  "Crowned Trader",
		logger:    logger,
	}, nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url %q has no id/token", raw)
}

// NotifySelection implements Notifier
func (n *DiscordNotifier) NotifySelection(result *SelectionResult) error {
	embed := FormatSelectionEmbed(result)
	if embed == nil {
		return nil
	}

	_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Username: n.username,
		Embeds:   []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to execute webhook: %w", err)
	}

	n.logger.WithField("selection_id", result.ID).Debug("Discord notification sent")
	return nil
}

// FormatSelectionEmbed renders a selection outcome as a Discord embed.
// Errors (bad input, provider outages) are not rendered.
func FormatSelectionEmbed(r *SelectionResult) *discordgo.MessageEmbed {
	switch r.Status {
	case models.SelectionStatusSelected:
		c := r.Contract
		q := c.Quote
		embed := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("%s %s %s", strings.ToUpper(c.Underlying), strings.ToUpper(string(c.Strategy)), strings.ToUpper(string(c.Side))),
			Color: colorSelected,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Contract", Value: q.Symbol},
				{Name: "Strike", Value: "$" + q.Strike.StringFixed(2), Inline: true},
				{Name: "Expiration", Value: fmt.Sprintf("%s (%d DTE)", c.Expiration.Format("2006-01-02"), c.DTE), Inline: true},
				{Name: "Delta", Value: fmt.Sprintf("%.2f", q.Delta), Inline: true},
				{Name: "Bid / Ask", Value: fmt.Sprintf("$%s / $%s", q.Bid.StringFixed(2), q.Ask.StringFixed(2)), Inline: true},
				{Name: "Open Interest", Value: fmt.Sprintf("%d", q.OpenInterest), Inline: true},
				{Name: "Spot", Value: "$" + c.SpotPrice.StringFixed(2), Inline: true},
			},
			Footer:    &discordgo.MessageEmbedFooter{Text: r.ID},
			Timestamp: r.EvaluatedAt.Format(time.RFC3339),
		}
		if c.BiasRelaxed {
			embed.Description = "No strike inside the ATM band; nearest OTM strike used."
		}
		return embed

	case models.SelectionStatusFailed:
		f := r.Failure
		embed := &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("%s %s: no contract", strings.ToUpper(r.Signal.Underlying), strings.ToUpper(string(r.Signal.Strategy))),
			Description: failureDescription(f),
			Color:       colorFailed,
			Footer:      &discordgo.MessageEmbedFooter{Text: r.ID},
			Timestamp:   r.EvaluatedAt.Format(time.RFC3339),
		}
		if f.Category != selector.CategoryNone {
			embed.Fields = []*discordgo.MessageEmbedField{
				{Name: "Main constraint", Value: string(f.Category), Inline: true},
				{Name: "Expirations tried", Value: fmt.Sprintf("%d", f.Attempted), Inline: true},
			}
		}
		return embed
	}
	return nil
}

func failureDescription(f *selector.SelectionFailure) string {
	switch f.Category {
	case selector.CategoryWindow:
		return "No expiration inside the strategy's DTE window."
	case selector.CategorySpread:
		return "Bid/ask spreads were too wide."
	case selector.CategoryLiquidity:
		return "Open interest was below the strategy minimum."
	case selector.CategoryDelta:
		return "No strike had a delta inside the strategy band."
	}
	return f.Reason.Error()
}
