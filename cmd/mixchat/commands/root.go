package commands

import (
	"github.com/spf13/cobra"

	"mixchat/internal/app"
)

var (
	configPath string
	home       string
	passphrase string
	nymWS      string
	serverAddr string
	logLevel   string
	logFile    string
	username   string

	appCtx *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:           "mixchat",
		Short:         "Secure messaging over an anonymous mixnet",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			// Flags override the file only when actually set.
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("nym-ws") {
				cfg.NymWS = nymWS
			}
			if flags.Changed("server") {
				cfg.ServerAddress = serverAddr
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-file") {
				cfg.LogFile = logFile
			}

			appCtx, err = app.NewApp(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.mixchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the local key")
	root.PersistentFlags().StringVar(&nymWS, "nym-ws", "", "mixnet daemon websocket URL (default ws://127.0.0.1:1977)")
	root.PersistentFlags().StringVar(&serverAddr, "server", "", "directory server mixnet address")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (ERROR, WARNING, NOTICE, INFO, DEBUG)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default stdout)")

	root.AddCommand(
		registerCmd(), loginCmd(), queryCmd(),
		sendCmd(), recvCmd(),
		contactsCmd(), historyCmd(), whoamiCmd(),
	)
	return root.Execute()
}
