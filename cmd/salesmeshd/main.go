// Command salesmeshd serves the conversational sales assistant over HTTP.
//
// Configuration comes from flags or SALESMESH_* environment variables, e.g.
// SALESMESH_PROVIDER=anthropic maps to --provider. Document indexes can be
// seeded from a JSON file via --docs; without one the assistant still answers,
// the retrieval functions just report empty indexes.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/logging"
	anthropiccap "github.com/hupe1980/salesmesh/model/anthropic"
	openaicap "github.com/hupe1980/salesmesh/model/openai"
	"github.com/hupe1980/salesmesh/retrieval"
	"github.com/hupe1980/salesmesh/runner"
	"github.com/hupe1980/salesmesh/server"
	"github.com/hupe1980/salesmesh/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "salesmeshd",
		Short:         "salesmeshd serves the conversational sales assistant over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":7071", "listen address")
	flags.String("provider", "openai", "model provider (openai or anthropic)")
	flags.String("model", "", "model identifier override")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("docs", "", "path to a JSON file seeding the document indexes")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix("SALESMESH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return cmd
}

func run() error {
	logger := logging.New(logging.ParseLevel(viper.GetString("log-level")), func(o *logging.Options) {
		o.Format = viper.GetString("log-format")
	})

	capability, err := buildCapability(viper.GetString("provider"), viper.GetString("model"))
	if err != nil {
		return err
	}

	functions, err := buildFunctions(viper.GetString("docs"))
	if err != nil {
		return err
	}

	r := runner.New(capability, session.NewInMemoryRegistry(), functions, func(o *runner.Options) {
		o.Logger = logger
	})

	srv := server.New(r, func(o *server.Options) {
		o.Logger = logger
	})

	addr := viper.GetString("addr")
	logger.Info("salesmeshd.listening", "addr", addr, "provider", viper.GetString("provider"))
	return srv.Run(addr)
}

func buildCapability(provider, modelID string) (core.Capability, error) {
	switch provider {
	case "openai":
		return openaicap.New(func(o *openaicap.Options) {
			if modelID != "" {
				o.Model = modelID
			}
		}), nil
	case "anthropic":
		return anthropiccap.New(func(o *anthropiccap.Options) {
			if modelID != "" {
				o.Model = anthropic.Model(modelID)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected openai or anthropic)", provider)
	}
}

// docSeed is the on-disk shape of --docs: documents per index.
type docSeed struct {
	Sales    []retrieval.Document `json:"sales"`
	Customer []retrieval.Document `json:"customer"`
	User     []retrieval.Document `json:"user"`
}

func buildFunctions(path string) ([]core.FunctionDecl, error) {
	sales := retrieval.NewMemorySearcher()
	customer := retrieval.NewMemorySearcher()
	user := retrieval.NewMemorySearcher()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read docs file: %w", err)
		}
		var seed docSeed
		if err := json.Unmarshal(raw, &seed); err != nil {
			return nil, fmt.Errorf("parse docs file: %w", err)
		}
		sales.Add(seed.Sales...)
		customer.Add(seed.Customer...)
		user.Add(seed.User...)
	}

	return retrieval.Functions(sales, customer, user), nil
}
