package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/service"
)

// restAPI is the subset of *discordgo.Session used for outbound messages.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Dispatcher posts announcements to a fixed channel and DMs users.
type Dispatcher struct {
	api           restAPI
	postChannelID string
}

var _ service.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(api restAPI, postChannelID string) *Dispatcher {
	return &Dispatcher{api: api, postChannelID: postChannelID}
}

func (d *Dispatcher) Announce(ctx context.Context, r *domain.Reservation) (string, error) {
	msg, err := d.api.ChannelMessageSendComplex(d.postChannelID, &discordgo.MessageSend{
		Content:    announcementContent(r),
		Components: announcementComponents(r.ID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("post announcement: %w", err)
	}
	return msg.ID, nil
}

func (d *Dispatcher) Withdraw(ctx context.Context, messageRef string) error {
	if err := d.api.ChannelMessageDelete(d.postChannelID, messageRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete announcement %s: %w", messageRef, err)
	}
	return nil
}

func (d *Dispatcher) DirectMessage(ctx context.Context, userID string, dm service.DirectMessage) error {
	ch, err := d.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", userID, err)
	}
	send := &discordgo.MessageSend{Content: dm.Content}
	if dm.CancelFor != "" {
		send.Components = cancelComponents(dm.CancelFor)
	}
	if _, err := d.api.ChannelMessageSendComplex(ch.ID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", userID, err)
	}
	return nil
}
