package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/ui"
	"github.com/cboone/lazynode/wait"
)

func (a *app) waitCommand() *cobra.Command {
	var (
		state    string
		contains string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "wait URL LOCATOR",
		Short: "Wait for a node and print its text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.locator(args[1])
			if err != nil {
				return err
			}
			st, err := parseState(state)
			if err != nil {
				return err
			}
			return a.withSession(cmd, args[0], func(s *lazynode.Session) error {
				h := s.Find(loc, name)
				var n ui.Node
				if contains != "" {
					n, err = h.WaitFor(fmt.Sprintf("text containing %q", contains), wait.TextContains(contains))
				} else {
					n, err = resolve(h, st)
				}
				if err != nil {
					return err
				}
				text, err := n.Text()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "visible", "state to wait for: existing, visible or clickable")
	cmd.Flags().StringVar(&contains, "contains", "", "wait until the node's text contains this (case-insensitive)")
	cmd.Flags().StringVar(&name, "name", "", "friendly name used in errors")
	return cmd
}

func (a *app) absentCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "absent URL LOCATOR",
		Short: "Wait until a node is missing or hidden",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.locator(args[1])
			if err != nil {
				return err
			}
			return a.withSession(cmd, args[0], func(s *lazynode.Session) error {
				if err := s.Find(loc, name).WaitForAbsent(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "absent")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "friendly name used in errors")
	return cmd
}

func (a *app) settledCommand() *cobra.Command {
	var printSource bool
	cmd := &cobra.Command{
		Use:   "settled URL",
		Short: "Wait until the document stops changing",
		Long: "Wait until two document reads a second apart are identical.\n" +
			"This is a heuristic: a page that mutates slower than once a second looks settled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, args[0], func(s *lazynode.Session) error {
				src, err := s.WaitForPageSettled()
				if err != nil {
					return err
				}
				if printSource {
					fmt.Fprintln(cmd.OutOrStdout(), src)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "settled (%d bytes)\n", len(src))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&printSource, "print", false, "print the settled document")
	return cmd
}

func (a *app) clickCommand() *cobra.Command {
	var (
		name string
		then string
	)
	cmd := &cobra.Command{
		Use:   "click URL LOCATOR",
		Short: "Wait for a node to be clickable and click it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.locator(args[1])
			if err != nil {
				return err
			}
			var next ui.Locator
			if then != "" {
				if next, err = a.locator(then); err != nil {
					return err
				}
			}
			return a.withSession(cmd, args[0], func(s *lazynode.Session) error {
				if err := s.Find(loc, name).Click(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "clicked")
				if next.IsZero() {
					return nil
				}
				if _, err := s.Find(next, "").ResolveVisible(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "visible", next)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "friendly name used in errors")
	cmd.Flags().StringVar(&then, "then", "", "after clicking, wait for this locator to be visible")
	return cmd
}

func parseState(s string) (wait.State, error) {
	for _, st := range []wait.State{wait.StateExists, wait.StateVisible, wait.StateClickable} {
		if s == st.String() {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q (want existing, visible or clickable)", s)
}

func resolve(h *lazynode.Handle, st wait.State) (ui.Node, error) {
	switch st {
	case wait.StateExists:
		return h.ResolveExisting()
	case wait.StateClickable:
		return h.ResolveClickable()
	default:
		return h.ResolveVisible()
	}
}
