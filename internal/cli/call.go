package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/plugins"
	"github.com/astahmer/zodios/transport"
)

type callFlags struct {
	params  []string
	queries []string
	headers []string
	data    string
}

func (a *App) callCommand() *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "call <alias | METHOD path>",
		Short: "Call an endpoint of the catalog",
		Long: `Call an endpoint by alias or by method and path template and print the
validated result. Error statuses declared by the endpoint print their status
and payload; the command then exits non-zero.`,
		Example: `  zodios call getPost -c api.yaml --base-url https://api.example.com -p id=1
  zodios call post /posts -c api.yaml -d '{"title":"hello"}'
  zodios call createPost -c api.yaml -d @post.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCall(cmd, args, f)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.params, "param", "p", nil, "path parameter name=value (repeatable)")
	flags.StringArrayVarP(&f.queries, "query", "q", nil, "query parameter name=value (repeatable)")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "header name=value (repeatable)")
	flags.StringVarP(&f.data, "data", "d", "", "request body as JSON, or @file")
	flags.String("base-url", "", "API base URL")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.Int("retries", 3, "transport retries for idempotent requests")
	flags.Bool("no-validate", false, "skip parameter and response validation")
	flags.String("token", "", "bearer token sent in the Authorization header")
	return cmd
}

func (a *App) runCall(cmd *cobra.Command, args []string, f callFlags) error {
	c, err := a.loadCatalog()
	if err != nil {
		return err
	}
	client, err := a.newClient(c)
	if err != nil {
		return err
	}

	cfg, err := f.requestConfig()
	if err != nil {
		return err
	}
	data, err := parseData(f.data)
	if err != nil {
		return err
	}

	result, err := a.call(cmd.Context(), client, args, data, cfg)
	if err != nil {
		var herr *zodios.HTTPError
		if errors.As(err, &herr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", herr.Status)
			_ = NewFormatter(FormatJSON).Format(cmd.ErrOrStderr(), herr.Payload)
		}
		return err
	}

	out, err := a.formatter()
	if err != nil {
		return err
	}
	return out.Format(cmd.OutOrStdout(), result)
}

func (a *App) call(ctx context.Context, client *zodios.Client, args []string, data any, cfg *zodios.RequestConfig) (any, error) {
	if len(args) == 1 {
		return client.Call(ctx, args[0], data, cfg)
	}
	method, err := zodios.ParseMethod(args[0])
	if err != nil {
		return nil, err
	}
	cfg.Method = method
	cfg.URL = args[1]
	cfg.Data = data
	return client.Request(ctx, *cfg)
}

func (a *App) newClient(c *zodios.Catalog) (*zodios.Client, error) {
	if a.config.BaseURL == "" {
		return nil, errors.New("no base URL: pass --base-url or set ZODIOS_BASE_URL")
	}

	opts := []zodios.Option{
		zodios.WithLogger(a.logger),
		zodios.WithValidation(!a.config.NoValidate),
		zodios.WithTimeout(a.config.Timeout),
		zodios.WithHeaders(a.config.Headers),
		zodios.WithTransportOptions(transport.WithMaxRetries(a.config.Retries)),
	}
	if a.transport != nil {
		opts = append(opts, zodios.WithTransport(a.transport))
	}
	if a.config.Verbose {
		opts = append(opts, zodios.WithDebug())
	}

	client := zodios.NewWithCatalog(a.config.BaseURL, c, opts...)
	if token := a.config.Token; token != "" {
		client.Use(plugins.Token(plugins.TokenProvider{
			Token: func(context.Context) (string, error) { return token, nil },
		}))
	}
	if a.config.Verbose {
		client.Use(plugins.Logger(a.logger))
	}
	return client, nil
}

func (f callFlags) requestConfig() (*zodios.RequestConfig, error) {
	params, err := parsePairs(f.params)
	if err != nil {
		return nil, fmt.Errorf("--param: %w", err)
	}
	queries, err := parsePairs(f.queries)
	if err != nil {
		return nil, fmt.Errorf("--query: %w", err)
	}
	headerPairs, err := parsePairs(f.headers)
	if err != nil {
		return nil, fmt.Errorf("--header: %w", err)
	}

	cfg := &zodios.RequestConfig{Params: params, Queries: queries}
	if len(headerPairs) > 0 {
		cfg.Headers = make(map[string]string, len(headerPairs))
		for k, v := range headerPairs {
			if values, ok := v.([]string); ok {
				v = values[len(values)-1]
			}
			cfg.Headers[k] = v.(string)
		}
	}
	return cfg, nil
}

// parsePairs reads name=value pairs. A repeated name collects its values
// into a []string.
func parsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		switch prev := out[name].(type) {
		case nil:
			out[name] = value
		case string:
			out[name] = []string{prev, value}
		case []string:
			out[name] = append(prev, value)
		}
	}
	return out, nil
}

// parseData decodes a JSON body. "@file" reads the file first; text that is
// not JSON is sent as a string.
func parseData(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		raw = string(content)
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return raw, nil
	}
	return data, nil
}
