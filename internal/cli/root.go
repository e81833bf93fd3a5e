// Package cli wires the session engine into a cobra command tree. It is
// presentation glue: all state lives in the engine packages.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rag-console/internal/api"
	"rag-console/internal/config"
	"rag-console/internal/docs"
	"rag-console/internal/pipeline"
	"rag-console/internal/session"
)

const Version = "0.1.0"

type app struct {
	configPath string
	passphrase string
	role       string

	cfg    *config.Config
	client *api.Client
	sess   *session.Session
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rag-console",
		Short:         "Console client for the personal RAG assistant",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./configs/config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&a.passphrase, "passphrase", "", "admin passphrase (prompted when omitted)")
	root.PersistentFlags().StringVar(&a.role, "role", "", "operator label remembered for this session")

	root.AddCommand(
		newChatCmd(a),
		newDocsCmd(a),
		newUploadCmd(a),
		newIngestCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load config: %v", err)
		}
		log.Debug().Str("path", a.configPath).Msg("config file not found, using defaults")
		cfg = config.Default()
	}
	a.cfg = cfg
	a.client = api.NewClient(cfg.BackendURL, cfg.Timeout())
	a.sess = session.New(cfg.AdminPassphrase)
	if a.role != "" {
		a.sess.SetRole(a.role)
	}
	return nil
}

// unlock opens the admin gate for this run. With no passphrase configured
// the gate stays open, which is the placeholder behavior of the original.
func (a *app) unlock(cmd *cobra.Command) error {
	if a.cfg.AdminPassphrase == "" {
		return nil
	}
	pass := a.passphrase
	if pass == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Passphrase: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %v", err)
		}
		pass = strings.TrimSpace(line)
	}
	if !a.sess.Unlock(pass) {
		return fmt.Errorf("%s", a.sess.Message())
	}
	return nil
}

// lifecycle builds the document manager with the pipeline mirror hanging
// off its change hook, and primes both from the backend.
func (a *app) lifecycle(ctx context.Context) (*docs.Manager, *pipeline.Mirror) {
	manager := docs.NewManager(a.client)
	mirror := pipeline.NewMirror(a.client)
	manager.OnServerChange = func(ctx context.Context) {
		mirror.Refresh(ctx)
	}
	if err := manager.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial document refresh failed")
	}
	mirror.Refresh(ctx)
	return manager, mirror
}
