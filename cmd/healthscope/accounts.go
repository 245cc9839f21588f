package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"healthScope/internal/badge"
	"healthScope/internal/model"
	"healthScope/internal/registry"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage tracked accounts",
	}

	add := &cobra.Command{
		Use:   "add <network> <address>",
		Short: "Track an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("label")
			account, err := model.NewTrackedAccount(args[1], args[0], label)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.tracker.Add(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracking %s\n", account.Key())
			return nil
		},
	}
	add.Flags().String("label", "", "display label")

	remove := &cobra.Command{
		Use:   "remove <network> <address>",
		Short: "Stop tracking an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKeyArgs(args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.tracker.Remove(cmd.Context(), key)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			pinned, _ := a.tracker.Pinned()
			printAccounts(cmd.OutOrStdout(), a.registry, a.tracker.Accounts(), pinned.Key())
			return nil
		},
	}

	pin := &cobra.Command{
		Use:   "pin <network> <address>",
		Short: "Drive the badge from an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKeyArgs(args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.tracker.Pin(cmd.Context(), key)
		},
	}

	unpin := &cobra.Command{
		Use:   "unpin",
		Short: "Clear the pinned account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.tracker.Unpin(cmd.Context())
		},
	}

	label := &cobra.Command{
		Use:   "label <network> <address> <label>",
		Short: "Set the display label of an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKeyArgs(args[:2])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.tracker.SetLabel(cmd.Context(), key, args[2])
		},
	}

	cmd.AddCommand(add, remove, list, pin, unpin, label)
	return cmd
}

func parseKeyArgs(args []string) (model.AccountKey, error) {
	return model.ParseAccountKey(args[0] + ":" + args[1])
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	pinStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(badge.ColorSafe)).Bold(true)
)

func printAccounts(w io.Writer, reg *registry.Registry, accounts []model.TrackedAccount, pinned model.AccountKey) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "no tracked accounts")
		return
	}
	row := func(mark, network, account, link string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			cellStyle.Width(3).Render(mark),
			cellStyle.Width(12).Render(network),
			cellStyle.Width(46).Render(account),
			link,
		)
	}
	fmt.Fprintln(w, headerStyle.Render(row("", "NETWORK", "ACCOUNT", "EXPLORER")))
	for _, a := range accounts {
		mark := ""
		if a.Key() == pinned {
			mark = pinStyle.Render("*")
		}
		network, link := a.Network, a.Address
		if n, err := reg.Lookup(a.Network); err == nil {
			network = n.DisplayName
			if url := n.AddressURL(a.Address); url != "" {
				link = url
			}
		}
		fmt.Fprintln(w, row(mark, network, a.DisplayName(), link))
	}
}
