package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/config"
	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/obs"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/repository"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/service"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/transport/discord"
)

// offlineDispatcher is used when no bot token is configured: announcements
// cannot be withdrawn and DMs are dropped.
type offlineDispatcher struct{}

func (offlineDispatcher) Announce(context.Context, *domain.Reservation) (string, error) {
	return "", fmt.Errorf("discord is not configured")
}

func (offlineDispatcher) Withdraw(context.Context, string) error {
	return fmt.Errorf("discord is not configured")
}

func (offlineDispatcher) DirectMessage(context.Context, string, service.DirectMessage) error {
	return fmt.Errorf("discord is not configured")
}

type app struct {
	cfg   config.App
	log   *slog.Logger
	store repository.Store
	close func() error
}

var verbose bool

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "reservectl",
		Short:         "Inspect and administer the reservation store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.close != nil {
				return a.close()
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newListCmd(a))
	root.AddCommand(newResetCmd(a))
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	a.cfg = cfg
	a.log = obs.NewLogger("reservectl", level)
	a.store, a.close, err = repository.Open(ctx, cfg, a.log)
	return err
}

// service builds the lifecycle handler, talking to Discord over REST when a
// token is available.
func (a *app) service() (*service.ReservationSvc, error) {
	var d service.Dispatcher = offlineDispatcher{}
	if a.cfg.DiscordToken != "" {
		sess, err := discordgo.New("Bot " + a.cfg.DiscordToken)
		if err != nil {
			return nil, fmt.Errorf("create discord session: %w", err)
		}
		d = discord.NewDispatcher(sess, a.cfg.PostChannelID)
	}
	return service.NewReservationSvc(a.store, d, service.Options{
		MaxReservations: a.cfg.MaxReservations,
		Logger:          a.log,
	}), nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			return printReservations(cmd.OutOrStdout(), list, a.cfg.MaxReservations)
		},
	}
}

func printReservations(w io.Writer, list []*domain.Reservation, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tLEVEL\tDATE\tTIME\tPUNI\tCODE\tPARTICIPANTS\tMESSAGE")
	for _, r := range list {
		msg := "-"
		if r.Announced() {
			msg = *r.MessageID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Owner, r.Level, r.Date, r.Time, r.Nickname, r.Code,
			strings.Join(r.Participants, ","), msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d/%d reservations\n", len(list), limit)
	return err
}

func newResetCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every reservation owned by a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			n, err := svc.Reset(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d reservation(s) owned by %s\n", n, owner)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Discord user id whose reservations are removed")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
