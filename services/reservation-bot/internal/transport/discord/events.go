package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/service"
)

// Kind tags the inbound event shapes the bot reacts to.
type Kind int

const (
	KindUnknown Kind = iota
	KindPanelRequest
	KindReserveButton
	KindReserveForm
	KindJoin
	KindLeave
	KindCancel
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindPanelRequest:
		return "panel_request"
	case KindReserveButton:
		return "reserve_button"
	case KindReserveForm:
		return "reserve_form"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindCancel:
		return "cancel"
	case KindReset:
		return "reset"
	}
	return "unknown"
}

// Event is one classified inbound event. Fields beyond Kind and User are set
// only for the kinds that carry them.
type Event struct {
	Kind          Kind
	User          service.Actor
	ReservationID string         // join, leave, cancel
	Details       domain.Details // reserve form
	Target        service.Actor  // reset

	Message     *discordgo.Message     // panel request
	Interaction *discordgo.Interaction // every interaction kind
}

// EventFromMessage recognises the panel trigger typed by a human in the input channel.
func EventFromMessage(m *discordgo.Message, inputChannelID, trigger string) (Event, bool) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return Event{}, false
	}
	if m.ChannelID != inputChannelID || m.Content != trigger {
		return Event{}, false
	}
	return Event{Kind: KindPanelRequest, User: actorOf(m.Author), Message: m}, true
}

// EventFromInteraction classifies button presses, form submissions and the
// reset command. Anything else is reported as not handled.
func EventFromInteraction(i *discordgo.Interaction) (Event, bool) {
	if i == nil {
		return Event{}, false
	}
	u := interactionUser(i)
	if u == nil {
		return Event{}, false
	}
	ev := Event{User: actorOf(u), Interaction: i}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.Name != "reset" {
			return Event{}, false
		}
		ev.Kind = KindReset
		ev.Target = resetTarget(data, ev.User)
		return ev, true

	case discordgo.InteractionMessageComponent:
		action, id, ok := domain.ParseCustomID(i.MessageComponentData().CustomID)
		if !ok {
			return Event{}, false
		}
		switch action {
		case domain.ActionReserve:
			ev.Kind = KindReserveButton
		case domain.ActionJoin:
			ev.Kind = KindJoin
		case domain.ActionLeave:
			ev.Kind = KindLeave
		case domain.ActionCancel:
			ev.Kind = KindCancel
		}
		ev.ReservationID = id
		return ev, true

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		if data.CustomID != domain.ReserveFormID {
			return Event{}, false
		}
		v := textInputValues(data.Components)
		ev.Kind = KindReserveForm
		ev.Details = domain.Details{
			Level:    v[fieldLevel],
			Date:     v[fieldDate],
			Time:     v[fieldTime],
			Nickname: v[fieldPuni],
			Code:     v[fieldCode],
		}
		return ev, true
	}
	return Event{}, false
}

// interactionUser is the member's user in guilds and the plain user in DMs.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func actorOf(u *discordgo.User) service.Actor {
	return service.Actor{ID: u.ID, Tag: userTag(u)}
}

func userTag(u *discordgo.User) string {
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	if u.Username == "" {
		return u.ID
	}
	return u.Username
}

// resetTarget reads the optional user option, defaulting to the invoker.
func resetTarget(data discordgo.ApplicationCommandInteractionData, invoker service.Actor) service.Actor {
	for _, opt := range data.Options {
		if opt.Name != "user" || opt.Type != discordgo.ApplicationCommandOptionUser {
			continue
		}
		id, ok := opt.Value.(string)
		if !ok || id == "" {
			break
		}
		if data.Resolved != nil {
			if u, ok := data.Resolved.Users[id]; ok && u != nil {
				return actorOf(u)
			}
		}
		return service.Actor{ID: id, Tag: id}
	}
	return invoker
}

func textInputValues(components []discordgo.MessageComponent) map[string]string {
	out := map[string]string{}
	var walk func([]discordgo.MessageComponent)
	walk = func(cs []discordgo.MessageComponent) {
		for _, c := range cs {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				out[v.CustomID] = v.Value
			case discordgo.TextInput:
				out[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return out
}
