package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yieldprotocol/principald/internal/node"
	"github.com/yieldprotocol/principald/internal/rpc"
)

// queryCmd executes a single RPC method in-process against state built
// from the configuration: genesis allocations, reserve, and an
// ephemeral in-memory journal. Useful for checking conversion math and
// maturity state without a running daemon.
var queryCmd = &cobra.Command{
	Use:   "query <method> [params-json]",
	Short: "Execute an RPC method in-process",
	Long: `Execute an RPC method locally using the same handlers as the server.
State is rebuilt from the configuration's genesis section; mutations are not
persisted. Examples:

  principald query token_info
  principald query preview_redeem '{"principal":"1000"}'
  principald query max_redeem '{"owner":"alice"}'`,
	Aliases: []string{"preview"},
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func buildQueryRegistry() *rpc.MethodRegistry {
	registry := rpc.NewMethodRegistry()

	registry.Register("ping", &rpc.PingMethod{})
	registry.Register("server_info", &rpc.ServerInfoMethod{})
	registry.Register("token_info", &rpc.TokenInfoMethod{})
	registry.Register("convert_to_underlying", &rpc.ConvertToUnderlyingMethod{})
	registry.Register("convert_to_principal", &rpc.ConvertToPrincipalMethod{})
	registry.Register("preview_redeem", &rpc.PreviewRedeemMethod{})
	registry.Register("preview_withdraw", &rpc.PreviewWithdrawMethod{})
	registry.Register("max_redeem", &rpc.MaxRedeemMethod{})
	registry.Register("max_withdraw", &rpc.MaxWithdrawMethod{})
	registry.Register("balance_of", &rpc.BalanceOfMethod{})
	registry.Register("allowance", &rpc.AllowanceMethod{})

	return registry
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	// Ephemeral state only: never touch the daemon's journal or index.
	cfg.Journal.Backend = "memory"
	cfg.Journal.Path = ""
	cfg.Index.Enabled = false

	n, err := node.New(cfg, log)
	if err != nil {
		return err
	}
	defer n.Close()

	method := args[0]
	var params json.RawMessage
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("params must be valid JSON: %s", args[1])
		}
		params = json.RawMessage(args[1])
	}

	registry := buildQueryRegistry()
	handler, exists := registry.Get(method)
	if !exists {
		return fmt.Errorf("unknown method %q (available: %v)", method, registry.List())
	}

	ctx := &rpc.RpcContext{
		Context:  context.Background(),
		Services: n.Services(),
	}

	result, rpcErr := handler.Handle(ctx, params)
	if rpcErr != nil {
		return fmt.Errorf("%s (%d): %s", rpcErr.ErrorString, rpcErr.Code, rpcErr.Message)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}
