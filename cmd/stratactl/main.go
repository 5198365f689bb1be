package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"Strata/internal/config"
	"Strata/internal/export"
	"Strata/internal/importer"
	"Strata/internal/logger"
	"Strata/internal/repo"
	"Strata/internal/validate"
)

const usage = `usage: stratactl <command> [flags]

commands:
  projects                          list projects
  import   -project ID [-charset C] FILE...
  validate -project ID
  export   -project ID [-format json|xlsx|pdf] [-gzip] [-o FILE]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)

	store, err := cfg.OpenStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	defer store.Close()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "projects":
		err = listProjects(ctx, store, os.Stdout)
	case "import":
		err = importFiles(ctx, store, args, os.Stdout)
	case "validate":
		err = validateProject(ctx, store, args, os.Stdout)
	case "export":
		err = exportProject(ctx, store, args, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func listProjects(ctx context.Context, store repo.Repository, out io.Writer) error {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.Number, p.Name)
	}
	return nil
}

func importFiles(ctx context.Context, store repo.Repository, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	projectID := fs.String("project", "", "project id")
	charset := fs.String("charset", "", "CSV character set, detected when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" || fs.NArg() == 0 {
		return fmt.Errorf("-project and at least one file are required")
	}
	for _, path := range fs.Args() {
		res, err := importer.ReadFile(path, importer.CSVOptions{Charset: *charset})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		saved, err := importer.Save(ctx, store, *projectID, res)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %d samples imported, %d rows skipped\n", path, saved, len(res.Skipped))
		for _, skip := range res.Skipped {
			fmt.Fprintf(out, "  row %d: %s\n", skip.Row, skip.Reason)
		}
	}
	return nil
}

func validateProject(ctx context.Context, store repo.Repository, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	projectID := fs.String("project", "", "project id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := store.GetProject(ctx, *projectID)
	if err != nil {
		return err
	}
	ok, results := validate.ValidateProject(p)
	for _, r := range results {
		fmt.Fprintln(out, r.String())
	}
	fmt.Fprintln(out, validate.Summary(results))
	if !ok {
		return fmt.Errorf("project %s has validation errors", p.Number)
	}
	return nil
}

func exportProject(ctx context.Context, store repo.Repository, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	projectID := fs.String("project", "", "project id")
	format := fs.String("format", "json", "json, xlsx or pdf")
	compress := fs.Bool("gzip", false, "gzip the JSON document")
	output := fs.String("o", "", "output file, stdout when empty")
	author := fs.String("author", os.Getenv("USER"), "report author")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := store.GetProject(ctx, *projectID)
	if err != nil {
		return err
	}
	if results, err := export.Validate(p); err != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(validate.Response{IsValid: false, Results: results})
		return err
	}

	out := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	e := export.NewExporter()
	switch strings.ToLower(*format) {
	case "json":
		return e.Project(out, p, export.Options{Compress: *compress})
	case "xlsx":
		return e.Workbook(out, p)
	case "pdf":
		return e.Report(out, p, *author)
	}
	return fmt.Errorf("unknown format %q", *format)
}
