package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

const (
	panelContent   = "お助け予約パネル"
	capacityReply  = "予約上限に達しています"
	resetReply     = "✅ %s の予約回数（%d件）をリセットしました。"
	resetFailed    = "❌ リセットできませんでした"
	reserveFailed  = "❌ 予約できませんでした"
	modalTitle     = "お助け予約"
	announceFormat = `📅 お助け予約が入りました！

👤 予約者：<@%s>
📈 レベル：%s
📆 日付：%s
⏰ 時間帯：%s
🐾 ぷに：%s
🔑 コード：%s`
)

// Form field custom ids, also the JSON names of the stored fields.
const (
	fieldLevel = "level"
	fieldDate  = "date"
	fieldTime  = "time"
	fieldPuni  = "puni"
	fieldCode  = "code"
)

type formField struct {
	id, label, placeholder string
}

var reserveFormFields = []formField{
	{fieldLevel, "レベル", "10"},
	{fieldDate, "日付", "1/1"},
	{fieldTime, "時間帯", "12:00頃"},
	{fieldPuni, "ぷに名", "ジバニャン"},
	{fieldCode, "キャラクターコード", "XXXX"},
}

func panelComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: domain.FormatCustomID(domain.ActionReserve, ""),
				Label:    "📅 お助け予約する",
				Style:    discordgo.PrimaryButton,
			},
		}},
	}
}

func announcementContent(r *domain.Reservation) string {
	return fmt.Sprintf(announceFormat, r.Owner, r.Level, r.Date, r.Time, r.Nickname, r.Code)
}

func announcementComponents(reservationID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: domain.FormatCustomID(domain.ActionJoin, reservationID),
				Label:    "🟢 参加",
				Style:    discordgo.SuccessButton,
			},
			discordgo.Button{
				CustomID: domain.FormatCustomID(domain.ActionLeave, reservationID),
				Label:    "🔴 キャンセル",
				Style:    discordgo.DangerButton,
			},
		}},
	}
}

func cancelComponents(reservationID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: domain.FormatCustomID(domain.ActionCancel, reservationID),
				Label:    "❌ 予約をキャンセル",
				Style:    discordgo.DangerButton,
			},
		}},
	}
}

func reserveModal() *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(reserveFormFields))
	for _, f := range reserveFormFields {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.id,
				Label:       f.label,
				Style:       discordgo.TextInputShort,
				Placeholder: f.placeholder,
				Required:    true,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   domain.ReserveFormID,
		Title:      modalTitle,
		Components: rows,
	}
}

// resetCommand is the administrator-only /reset slash command.
func resetCommand() *discordgo.ApplicationCommand {
	perm := int64(discordgo.PermissionAdministrator)
	return &discordgo.ApplicationCommand{
		Name:                     "reset",
		Description:              "ユーザーの予約回数をリセットします",
		DefaultMemberPermissions: &perm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "リセットするユーザー（指定しない場合は自分）",
				Required:    false,
			},
		},
	}
}
