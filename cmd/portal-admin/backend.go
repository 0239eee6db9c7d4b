package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/municipal-portal/internal/adapters/backend"
	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/roads"
)

const backendCommandTimeout = time.Minute

type credentialOptions struct {
	Username string
	Password string
}

type datasetSummaryOptions struct {
	credentialOptions
	By  string
	Top int
}

// bindCredentialFlags falls back to the dataset warmer's service account.
func bindCredentialFlags(fs *flag.FlagSet, opts *credentialOptions, cmdCtx *commandContext) {
	fs.StringVar(&opts.Username, "username", cmdCtx.Config.Dataset.WarmUsername, "backend username")
	fs.StringVar(&opts.Password, "password", cmdCtx.Config.Dataset.WarmPassword, "backend password")
}

func (o credentialOptions) validate() error {
	if strings.TrimSpace(o.Username) == "" || o.Password == "" {
		return errors.New("username and password are required (flags or DATASET_WARM_USERNAME/DATASET_WARM_PASSWORD)")
	}
	return nil
}

func parseDatasetSummaryFlags(cmdCtx *commandContext, args []string) (datasetSummaryOptions, error) {
	var opts datasetSummaryOptions
	fs := flag.NewFlagSet("dataset-summary", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindCredentialFlags(fs, &opts.credentialOptions, cmdCtx)
	fs.StringVar(&opts.By, "by", "municipio", "group by municipio or estado")
	fs.IntVar(&opts.Top, "top", 20, "number of groups to print (0 for all)")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parse flags: %w", err)
	}
	if opts.By != "municipio" && opts.By != "estado" {
		return opts, fmt.Errorf("invalid -by %q (valid options: municipio, estado)", opts.By)
	}
	if opts.Top < 0 {
		return opts, errors.New("-top must not be negative")
	}
	return opts, opts.validate()
}

func newBackendClient(cmdCtx *commandContext) (*backend.Client, error) {
	cfg := cmdCtx.Config.Backend
	client, err := backend.NewClient(backend.Options{
		BaseURL:     cfg.URL,
		Timeout:     cfg.Timeout,
		DatasetPath: cfg.DatasetPath,
		RowsExpr:    cfg.DatasetRowsExpr,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	return client, nil
}

// withLogin runs fn with a fresh backend token and logs out afterwards.
func withLogin(
	ctx context.Context,
	cmdCtx *commandContext,
	client *backend.Client,
	creds credentialOptions,
	fn func(token string) error,
) error {
	res, err := client.Login(ctx, domainauth.Credentials{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		if logoutErr := client.Logout(context.WithoutCancel(ctx), res.Token); logoutErr != nil {
			cmdCtx.Logger.Warn("backend logout failed", "error", logoutErr)
		}
	}()
	return fn(res.Token)
}

func runCheckBackend(cmdCtx *commandContext, args []string) error {
	var opts credentialOptions
	fs := flag.NewFlagSet("check-backend", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindCredentialFlags(fs, &opts, cmdCtx)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := opts.validate(); err != nil {
		return err
	}

	client, err := newBackendClient(cmdCtx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, backendCommandTimeout)
	defer cancel()

	start := time.Now()
	return withLogin(ctx, cmdCtx, client, opts, func(token string) error {
		id, err := client.WhoAmI(ctx, token)
		if err != nil {
			return fmt.Errorf("whoami: %w", err)
		}
		return writeIdentity(cmdCtx.Out, cmdCtx.Config.Backend.URL, id, time.Since(start))
	})
}

func writeIdentity(w io.Writer, backendURL string, id domainauth.Identity, elapsed time.Duration) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Backend", backendURL},
		{"User", id.DisplayName()},
		{"Email", id.Email},
		{"Role", string(id.Role)},
		{"Active", fmt.Sprintf("%t", id.Active)},
		{"Elapsed", elapsed.Round(time.Millisecond).String()},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1]); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func runDatasetSummary(cmdCtx *commandContext, args []string) error {
	opts, err := parseDatasetSummaryFlags(cmdCtx, args)
	if err != nil {
		return err
	}
	client, err := newBackendClient(cmdCtx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, backendCommandTimeout)
	defer cancel()

	return withLogin(ctx, cmdCtx, client, opts.credentialOptions, func(token string) error {
		rows, err := client.FetchDataset(ctx, token)
		if err != nil {
			return fmt.Errorf("fetch dataset: %w", err)
		}
		return writeDatasetSummary(cmdCtx.Out, roads.ParseRows(rows), opts)
	})
}

type datasetGroup struct {
	Key   string
	Count int
	Total float64
}

func groupRecords(records []roads.Record, by string) []datasetGroup {
	index := make(map[string]int)
	var groups []datasetGroup
	for _, r := range records {
		key := r.Municipio
		if by == "estado" {
			key = r.Estado
		}
		if key == "" {
			key = roads.UnknownMunicipio
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, datasetGroup{Key: key})
		}
		groups[i].Count++
		groups[i].Total += r.Valor
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Total != groups[b].Total {
			return groups[a].Total > groups[b].Total
		}
		return groups[a].Key < groups[b].Key
	})
	return groups
}

func writeDatasetSummary(w io.Writer, records []roads.Record, opts datasetSummaryOptions) error {
	sum := roads.Summarize(records)
	if err := writef(w, "Registros: %d  Municípios: %d  Total: %s\n\n", sum.Count, sum.Municipios, sum.TotalText); err != nil {
		return err
	}

	groups := groupRecords(records, opts.By)
	if opts.Top > 0 && len(groups) > opts.Top {
		groups = groups[:opts.Top]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tw, "%s\tREGISTROS\tVALOR\t\n", strings.ToUpper(opts.By)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\t\n", g.Key, g.Count, roads.FormatBRL(g.Total)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
