package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/netwatch-oss/triggerkit/internal/apiclient"
	"github.com/netwatch-oss/triggerkit/internal/lifecycle"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

func (a *app) client() (*apiclient.Client, error) {
	c := a.settings.Client
	return apiclient.New(c.BaseURL,
		apiclient.WithToken(c.Token),
		apiclient.WithTimeout(c.Timeout.Std()),
		apiclient.WithLogger(a.log))
}

// session returns a lifecycle session over the console API.
func (a *app) session() (*lifecycle.Session, *apiclient.Client, error) {
	client, err := a.client()
	if err != nil {
		return nil, nil, err
	}
	s := lifecycle.NewSession(client, client,
		lifecycle.WithLogger(a.log),
		lifecycle.WithItemCacheTTL(a.settings.Client.ItemCacheTTL.Std()))
	return s, client, nil
}

func (a *app) actor() trigger.Actor {
	return trigger.Actor{Name: a.settings.Client.UserName, Role: a.settings.Client.UserRole}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// clauseSpec is one clause given on the command line as comma separated
// field=value pairs, e.g. "item=cpu_load,fn=avg,window=15m,op=>,value=90".
type clauseSpec map[trigger.ClauseField]string

func parseClauseSpec(s string) (clauseSpec, error) {
	spec := make(clauseSpec)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("clause %q: expected field=value, got %q", s, pair)
		}
		field, err := trigger.ParseClauseField(key)
		if err != nil {
			return nil, fmt.Errorf("clause %q: %w", s, err)
		}
		spec[field] = strings.TrimSpace(value)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("empty clause")
	}
	return spec, nil
}

// fieldOrder fixes the order in which clause fields are applied.
var fieldOrder = []trigger.ClauseField{
	trigger.FieldItem,
	trigger.FieldFunction,
	trigger.FieldWindow,
	trigger.FieldOperation,
	trigger.FieldThreshold,
	trigger.FieldJoiner,
}

// replaceChain swaps the clauses of one chain for specs. New clauses are
// added before the old ones are removed so the chain is never empty.
func replaceChain(d *lifecycle.Draft, kind lifecycle.ChainKind, specs []string) error {
	old := d.Chain(kind)
	for _, raw := range specs {
		spec, err := parseClauseSpec(raw)
		if err != nil {
			return err
		}
		id := d.AddClause(kind)
		for _, field := range fieldOrder {
			value, ok := spec[field]
			if !ok {
				continue
			}
			if err := d.UpdateClause(kind, id, field, value); err != nil {
				return fmt.Errorf("clause %q: %w", raw, err)
			}
		}
	}
	for _, c := range old {
		d.RemoveClause(kind, c.ID)
	}
	return nil
}
