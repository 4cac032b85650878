package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"skyauth/client"
	"skyauth/scheduler"
)

// consoleUI renders login state as plain lines for headless logins.
type consoleUI struct {
	out  io.Writer
	last client.AuthUIState
}

func (u *consoleUI) PushState(state client.AuthUIState) error {
	if state.StatusComment != "" && state.StatusComment != u.last.StatusComment {
		fmt.Fprintln(u.out, state.StatusComment)
	}
	if state.FailureReason != "" && state.FailureReason != u.last.FailureReason {
		fmt.Fprintln(u.out, "login failed:", state.FailureReason)
	}
	u.last = state
	return nil
}

func (u *consoleUI) SetVisible(bool) {}
func (u *consoleUI) SetFocused(bool) {}
func (u *consoleUI) LoadUI() error   { return nil }

func (u *consoleUI) OpenURL(url string) error {
	fmt.Fprintln(u.out, "Open this page in your browser to log in:")
	fmt.Fprintln(u.out, "  "+url)
	return nil
}

func (u *consoleUI) NotifyAuthCompleted() {}
func (u *consoleUI) NotifyBackToLogin()   {}

// detachedConnection stands in for the game connection, which a headless
// login never opens.
type detachedConnection struct {
	logger *slog.Logger
}

func (c detachedConnection) SendReliable([]byte) error {
	return errors.New("no game connection in headless login")
}

func (c detachedConnection) Close() {}

func (c detachedConnection) Reconnect() {
	c.logger.Debug("reconnect ignored in headless login")
}

type noIdentity struct{}

func (noIdentity) ReadRemoteIdentity() (*client.RemoteIdentity, error) {
	return nil, nil
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		timeout time.Duration
		noWrite bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the local broker and write the identity file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := initLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			id, err := runLogin(ctx, cfg.Client, &consoleUI{out: cmd.ErrOrStderr()}, logger)
			if err != nil {
				return err
			}

			if !noWrite {
				if err := client.WriteIdentityFile(cfg.Client.IdentityFile, *id); err != nil {
					return err
				}
				logger.Info("identity file written", "path", cfg.Client.IdentityFile)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(id)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up when the login has not completed in time")
	cmd.Flags().BoolVar(&noWrite, "no-write", false, "print the identity without writing the identity file")
	return cmd
}

// runLogin drives the auth state machine until the broker hands out an
// identity or ctx ends.
func runLogin(ctx context.Context, cfg ClientConfig, ui client.UI, logger *slog.Logger) (*client.RemoteIdentity, error) {
	broker, err := client.NewBrokerClient(cfg.BrokerConfig)
	if err != nil {
		return nil, err
	}

	retry := client.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.MaxPollAttempts

	loop := scheduler.NewLoop(scheduler.WithLogger(logger))
	svc, err := client.NewAuthService(loop, client.Deps{
		UI:         ui,
		Connection: detachedConnection{logger: logger},
		Identities: noIdentity{},
		Broker:     broker,
	}, client.Settings{
		LoginPage: func(state string) string {
			return broker.LoginURL(cfg.AuthURL, state)
		},
		WatchdogDeadline: cfg.WatchdogDeadline,
		Retry:            retry,
	}, client.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan *client.RemoteIdentity, 1)
	loop.Post(func() {
		svc.OnLoginNeeded()
		svc.OnUIReady()
		svc.OnUIEvent(client.EventOpenLogin, nil)
	})
	stopWatch := scheduler.Every(loop, 250*time.Millisecond, func() {
		if svc.State() == client.StateAwaitingUserConfirm {
			select {
			case done <- svc.Identity():
			default:
			}
		}
	})
	defer stopWatch()

	go loop.Run(ctx)

	select {
	case id := <-done:
		return id, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("login did not complete: %w", ctx.Err())
	}
}
