package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/service"
)

// Reservations is the lifecycle handler as seen by the router.
type Reservations interface {
	CanReserve(ctx context.Context) (bool, error)
	Create(ctx context.Context, owner service.Actor, d domain.Details) (*domain.Reservation, error)
	Join(ctx context.Context, id string, user service.Actor) (bool, error)
	Leave(ctx context.Context, id string, user service.Actor) (bool, error)
	Cancel(ctx context.Context, id string, user service.Actor) (bool, error)
	Reset(ctx context.Context, target string) (int, error)
}

// sessionAPI is the subset of *discordgo.Session the router talks to.
type sessionAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

type RouterConfig struct {
	InputChannelID string
	PanelTrigger   string
}

type Router struct {
	api sessionAPI
	svc Reservations
	cfg RouterConfig
	log *slog.Logger
}

func NewRouter(api sessionAPI, svc Reservations, cfg RouterConfig, log *slog.Logger) *Router {
	return &Router{api: api, svc: svc, cfg: cfg, log: log.With("component", "discord-router")}
}

// Register attaches the router to a session's gateway events.
func (r *Router) Register(s *discordgo.Session) {
	s.AddHandler(r.onReady)
	s.AddHandler(r.onMessageCreate)
	s.AddHandler(r.onInteractionCreate)
}

func (r *Router) onReady(_ *discordgo.Session, ready *discordgo.Ready) {
	r.log.Info("connected", "user", userTag(ready.User))
	appID := ready.User.ID
	if ready.Application != nil && ready.Application.ID != "" {
		appID = ready.Application.ID
	}
	if err := r.RegisterCommands(context.Background(), appID); err != nil {
		r.log.Error("register commands failed", "err", err)
		return
	}
	r.log.Info("slash commands registered")
}

// RegisterCommands overwrites the global command set with /reset.
func (r *Router) RegisterCommands(ctx context.Context, appID string) error {
	_, err := r.api.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{resetCommand()}, discordgo.WithContext(ctx))
	return err
}

func (r *Router) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := EventFromMessage(m.Message, r.cfg.InputChannelID, r.cfg.PanelTrigger)
	if !ok {
		return
	}
	r.handle(context.Background(), ev)
}

func (r *Router) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ev, ok := EventFromInteraction(i.Interaction)
	if !ok {
		return
	}
	r.handle(context.Background(), ev)
}

func (r *Router) handle(ctx context.Context, ev Event) {
	if err := r.Dispatch(ctx, ev); err != nil {
		r.log.ErrorContext(ctx, "event failed", "kind", ev.Kind.String(), "user", ev.User.ID, "reservation", ev.ReservationID, "err", err)
	}
}

// Dispatch runs the handler for one event. Errors are for logging only; the
// interaction has already been acknowledged where possible.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case KindPanelRequest:
		return r.sendPanel(ctx, ev)
	case KindReserveButton:
		return r.openForm(ctx, ev)
	case KindReserveForm:
		return r.submitForm(ctx, ev)
	case KindJoin:
		return r.ackThen(ctx, ev, r.svc.Join)
	case KindLeave:
		return r.ackThen(ctx, ev, r.svc.Leave)
	case KindCancel:
		return r.ackThen(ctx, ev, r.svc.Cancel)
	case KindReset:
		return r.reset(ctx, ev)
	case KindUnknown:
	}
	return fmt.Errorf("unhandled event kind %s", ev.Kind)
}

func (r *Router) sendPanel(ctx context.Context, ev Event) error {
	_, err := r.api.ChannelMessageSendComplex(ev.Message.ChannelID, &discordgo.MessageSend{
		Content:    panelContent,
		Components: panelComponents(),
		Reference:  ev.Message.Reference(),
	}, discordgo.WithContext(ctx))
	return err
}

func (r *Router) openForm(ctx context.Context, ev Event) error {
	ok, err := r.svc.CanReserve(ctx)
	if err != nil {
		return errors.Join(err, r.ephemeral(ctx, ev.Interaction, reserveFailed))
	}
	if !ok {
		return r.ephemeral(ctx, ev.Interaction, capacityReply)
	}
	return r.api.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: reserveModal(),
	}, discordgo.WithContext(ctx))
}

func (r *Router) submitForm(ctx context.Context, ev Event) error {
	_, err := r.svc.Create(ctx, ev.User, ev.Details)
	switch {
	case errors.Is(err, service.ErrCapacityReached):
		return r.ephemeral(ctx, ev.Interaction, capacityReply)
	case err != nil:
		return errors.Join(err, r.ephemeral(ctx, ev.Interaction, reserveFailed))
	}
	return r.deferUpdate(ctx, ev.Interaction)
}

// ackThen acknowledges first: stale references and no-ops look the same to the user.
func (r *Router) ackThen(ctx context.Context, ev Event, op func(context.Context, string, service.Actor) (bool, error)) error {
	ackErr := r.deferUpdate(ctx, ev.Interaction)
	_, err := op(ctx, ev.ReservationID, ev.User)
	return errors.Join(err, ackErr)
}

func (r *Router) reset(ctx context.Context, ev Event) error {
	n, err := r.svc.Reset(ctx, ev.Target.ID)
	if err != nil {
		return errors.Join(err, r.ephemeral(ctx, ev.Interaction, resetFailed))
	}
	return r.ephemeral(ctx, ev.Interaction, fmt.Sprintf(resetReply, ev.Target.Tag, n))
}

func (r *Router) deferUpdate(ctx context.Context, i *discordgo.Interaction) error {
	return r.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
}

func (r *Router) ephemeral(ctx context.Context, i *discordgo.Interaction, content string) error {
	return r.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
}
