package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/catalog"
)

var errNoCatalog = errors.New("no catalog file: pass --catalog or set ZODIOS_CATALOG")

func (a *App) loadCatalog() (*zodios.Catalog, error) {
	if a.config.Catalog == "" {
		return nil, errNoCatalog
	}
	c, err := catalog.Load(a.config.Catalog)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Loaded catalog", "path", a.config.Catalog, "endpoints", c.Len())
	return c, nil
}

func (a *App) endpointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "endpoints",
		Aliases: []string{"ls"},
		Short:   "Check a catalog file and list its endpoints",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			f, err := a.formatter()
			if err != nil {
				return err
			}
			return f.Format(cmd.OutOrStdout(), endpointTable(c))
		},
	}
}

func endpointTable(c *zodios.Catalog) Table {
	t := Table{Headers: []string{"Method", "Path", "Alias", "Parameters", "Status", "Errors"}}
	for _, e := range c.Endpoints() {
		params := make([]string, 0, len(e.Parameters))
		for _, p := range e.Parameters {
			params = append(params, strings.ToLower(string(p.Type))+":"+p.Name)
		}
		errs := make([]string, 0, len(e.Errors))
		for _, es := range e.Errors {
			errs = append(errs, es.StatusLabel())
		}
		t.Rows = append(t.Rows, []string{
			strings.ToUpper(string(e.Method)),
			e.Path,
			e.Alias,
			strings.Join(params, ","),
			strconv.Itoa(e.SuccessStatus()),
			strings.Join(errs, ","),
		})
	}
	return t
}
