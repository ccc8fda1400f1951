package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tcmesh/internal/backend"
	"tcmesh/internal/bus"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		backendName         string
		netnsDir            string
		enableDocker        bool
		containerdAddr      string
		containerdNamespace string
		scenarioDirs        []string
		debug               bool
	)

	cmd := &cobra.Command{
		Use:     "tcmeshd",
		Short:   "Traffic-control agent: drives netem qdiscs over a pub/sub and query/reply bus",
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gw := netlinkgw.NewLinux()
			defer gw.Close()

			session := bus.NewMemory()
			defer session.Close()

			host, err := backend.New(backend.Config{
				BackendName:         backendName,
				NetnsDir:            netnsDir,
				EnableDocker:        enableDocker,
				ContainerdAddr:      containerdAddr,
				ContainerdNamespace: containerdNamespace,
				ScenarioDirs:        scenarioDirs,
			}, session, gw)
			if err != nil {
				return err
			}

			slog.Info("tcmeshd booted", "backend", backendName)
			return host.Run(ctx)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&backendName, "backend-name", "agent-1", "this agent's name in the topic grammar")
	cmd.Flags().StringVar(&netnsDir, "netns-dir", "/var/run/netns", "directory ip-netns(8) uses for named namespaces")
	cmd.Flags().BoolVar(&enableDocker, "docker", false, "inspect running containers via the ambient Docker environment")
	cmd.Flags().StringVar(&containerdAddr, "containerd-addr", "", "dial this containerd socket for container inspection (empty disables)")
	cmd.Flags().StringVar(&containerdNamespace, "containerd-namespace", "default", "containerd namespace to scope container inspection to")
	cmd.Flags().StringSliceVar(&scenarioDirs, "scenario-dir", nil, "directory of scenario YAML files (repeatable)")

	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the tcmeshd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(strings.TrimSpace(cmd.Root().Version))
			return nil
		},
	}
}
