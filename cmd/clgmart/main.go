package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/logger"
)

func main() {
	Execute()
}

var (
	configFile string
	noSpinner  bool
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clgmart",
	Short: "Sign in to ClgMart from the terminal",
	Long: `clgmart signs you in to ClgMart with Google or with email and password.
It can also host the web sign-in screens and OAuth callback with "clgmart serve".`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
		if cmd == cmd.Root() {
			return nil
		}

		loaded, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := logger.InitLogger(&loaded.Logging); err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolVar(&noSpinner, "no-spinner", false, "Print progress instead of showing a spinner")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	config.InitFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newLoginCmd(),
		newCallbackCmd(),
		newSignInCmd(),
		newSignUpCmd(),
		newResendCmd(),
		newSessionCmd(),
		newWhoAmICmd(),
		newLogoutCmd(),
		newServeCmd(),
	)
}
