// Command grugd is the Grug node daemon: it loads a config file, wires
// storage, the execution pipeline, the DEX manager, and the consensus
// adapter together, then either runs the debug HTTP server or answers
// a one-shot CLI query against the last committed state.
//
// Grounded on cmd/synnergy/main.go's minimal cobra root-plus-subcommand
// layout (kept: one rootCmd, AddCommand per verb, Execute once in
// main) and cmd/cli/amm.go's viper-for-flags / zap.L().Sugar() logging
// convention for command output.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grug/abci"
	"grug/db"
	"grug/dex"
	"grug/execute"
	"grug/internal/debugsrv"
	pkgconfig "grug/pkg/config"
	"grug/query"
	"grug/types"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if logger, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(logger)
	}

	rootCmd := &cobra.Command{Use: "grugd"}
	rootCmd.PersistentFlags().String("env", "", "named config overlay merged over cmd/config/default.yaml (GRUG_ENV)")
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(queryCmd())
	if err := rootCmd.Execute(); err != nil {
		zap.L().Sugar().Errorw("grugd exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*pkgconfig.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	if env != "" {
		return pkgconfig.Load(env)
	}
	return pkgconfig.LoadFromEnv()
}

// node is the set of collaborators every subcommand wires up the same
// way; only what each subcommand does with them differs.
type node struct {
	cfg     *pkgconfig.Config
	db      *db.Db
	adapter *abci.Adapter
}

func newNode(cfg *pkgconfig.Config) (*node, error) {
	database := db.NewDb()
	pipeline := execute.NewPipeline(nil, nil, nil)

	invoker, err := newWasmInvoker(pipeline.State, cfg.VM.InstanceCacheCap)
	if err != nil {
		return nil, fmt.Errorf("build wasm invoker: %w", err)
	}
	pipeline.Invoker = invoker

	dexMgr := dex.NewManager(dex.NewState(), pipeline.State)
	adapter := abci.NewAdapter(database, pipeline, dexMgr)
	return &node{cfg: cfg, db: database, adapter: adapter}, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "run InitChain once with the configured chain ID and genesis time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			n, err := newNode(cfg)
			if err != nil {
				return err
			}
			resp, err := n.adapter.InitChain(abci.RequestInitChain{
				ChainID: cfg.Network.ChainID,
				Time:    cfg.Consensus.GenesisTimeUnixNano,
			})
			if err != nil {
				return fmt.Errorf("InitChain: %w", err)
			}
			zap.L().Sugar().Infow("genesis applied", "chain_id", cfg.Network.ChainID, "app_hash", resp.AppHash)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "run the debug HTTP server over the last committed state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			n, err := newNode(cfg)
			if err != nil {
				return err
			}
			srv := debugsrv.NewServer(cfg.Network.ListenAddr, n.adapter)
			zap.L().Sugar().Infow("grugd listening", "addr", cfg.Network.ListenAddr)
			return srv.Start()
		},
	}
	return cmd
}

func queryCmd() *cobra.Command {
	var denom string
	cmd := &cobra.Command{
		Use:   "query [address]",
		Short: "dispatch a one-shot balance query against the last committed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			n, err := newNode(cfg)
			if err != nil {
				return err
			}

			addr, err := types.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("parse address: %w", err)
			}
			q := query.Query{Kind: query.KindBalance, Balance: &query.BalanceQuery{Address: addr, Denom: denom}}
			data, err := json.Marshal(q)
			if err != nil {
				return err
			}
			resp := n.adapter.Query(abci.RequestQuery{Data: data})
			if resp.Error != "" {
				return fmt.Errorf("query: %s", resp.Error)
			}
			fmt.Println(string(resp.Value))
			return nil
		},
	}
	cmd.Flags().StringVar(&denom, "denom", "", "restrict the balance query to one denom")
	return cmd
}
