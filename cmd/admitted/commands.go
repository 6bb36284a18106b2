package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/browser"
	"github.com/GriffinCanCode/admitted/internal/driver"
	"github.com/GriffinCanCode/admitted/internal/httpclient"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/server"
	"github.com/GriffinCanCode/admitted/internal/navigation"
	"github.com/GriffinCanCode/admitted/internal/response"
)

type rootFlags struct {
	config  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "admitted",
		Short:         "Keep chromedriver in step with Chrome and drive browser sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.config, "config", "", "YAML or TOML config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newCheckCmd(flags),
		newInstallCmd(flags),
		newCleanCmd(flags),
		newFetchCmd(flags),
		newOpenCmd(flags),
	)
	return root
}

// withApp builds the shared components and runs fn with them.
func withApp(flags *rootFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flags.config, flags.verbose)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a, args)
	}
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print whether the installed driver matches the browser",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			d, err := a.reconciler.NeedsUpgrade(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "platform:  %s\n", a.profile.ID)
			fmt.Fprintf(out, "browser:   %s\n", d.Browser)
			fmt.Fprintf(out, "driver:    %s\n", d.Installed)
			fmt.Fprintf(out, "decision:  %s\n", d)
			return nil
		}),
	}
}

func newInstallCmd(flags *rootFlags) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Reconcile and install the matching driver",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			var (
				installed string
				err       error
			)
			switch version {
			case "":
				installed, err = driver.Ensure(cmd.Context(), a.reconciler, a.installer)
			case "latest":
				installed, err = a.installer.InstallLatest(cmd.Context())
			default:
				installed, err = version, a.installer.Install(cmd.Context(), version)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", a.profile.DriverPath(), installed)
			return nil
		}),
	}
	cmd.Flags().StringVar(&version, "version", "", `install this exact version, or "latest", instead of reconciling`)
	return cmd
}

func newCleanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove leftovers of interrupted installs",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			n, err := a.installer.Clean(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", n)
			return nil
		}),
	}
}

func newFetchCmd(flags *rootFlags) *cobra.Command {
	var (
		method  string
		headers map[string]string
		stream  bool
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL without a browser and print status and body",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			resp, err := a.http.Do(cmd.Context(), method, args[0], httpclient.RequestOptions{
				Headers: headers,
				Stream:  stream,
			})
			if err != nil {
				return err
			}
			defer resp.Close()
			return printResponse(cmd.OutOrStdout(), cmd.ErrOrStderr(), resp)
		}),
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "request method")
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "request header, name=value")
	cmd.Flags().BoolVar(&stream, "stream", false, "copy the body straight through without buffering")
	return cmd
}

func newOpenCmd(flags *rootFlags) *cobra.Command {
	var (
		fetchURL string
		serve    bool
		noEnsure bool
	)
	cmd := &cobra.Command{
		Use:   "open URL",
		Short: "Launch a browser session, navigate with retries and print the final URL",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			opts := browser.NewOptions(a.profile, a.cfg)

			if opts.AttachURL == "" && !noEnsure {
				if _, err := driver.Ensure(ctx, a.reconciler, a.installer); err != nil {
					return err
				}
			}

			sup := browser.NewSupervisor(a.logger, a.metrics)
			var status *server.Server
			if serve {
				addr := a.cfg.Metrics.Addr
				if addr == "" {
					addr = "127.0.0.1:0"
				}
				status = server.New(server.Options{
					Addr:        addr,
					Development: a.cfg.Logging.Development,
				}, sup, a.metrics, a.logger)
				if err := status.Start(); err != nil {
					return err
				}
				defer shutdown(status)
			}

			sess, err := sup.Launch(ctx, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			nav := navigation.New(sess, a.logger, a.metrics)
			if err := nav.Navigate(ctx, args[0], navigation.Options{
				MaxRetries:  a.cfg.Navigation.Retries,
				BackoffBase: a.cfg.Navigation.Backoff.Std(),
			}); err != nil {
				return err
			}
			current, err := sess.CurrentURL(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), current)

			if fetchURL != "" {
				win, err := sess.Window(ctx)
				if err != nil {
					return err
				}
				resp, err := win.Fetch(ctx, browser.FetchRequest{URL: fetchURL})
				if err != nil {
					return err
				}
				if err := printResponse(cmd.OutOrStdout(), cmd.ErrOrStderr(), resp); err != nil {
					return err
				}
			}

			if status != nil {
				a.logger.Info("Serving status until interrupted", zap.String("addr", status.Addr()))
				select {
				case <-ctx.Done():
				case <-sess.Done():
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&fetchURL, "fetch", "", "after navigating, fetch this URL through the page")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve status on metrics.addr (or a free local port) until interrupted")
	cmd.Flags().BoolVar(&noEnsure, "no-ensure", false, "skip driver reconciliation before launch")
	return cmd
}

// printResponse writes the status line to errw and the body to w.
func printResponse(w, errw io.Writer, resp *response.Response) error {
	fmt.Fprintf(errw, "%d %s (%s)\n", resp.StatusCode, resp.Reason, resp.Source)
	if _, err := resp.WriteStream(w); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func shutdown(s *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}
