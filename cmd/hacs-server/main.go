package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hacs/hacs/internal/domain/modeling"
	engine "github.com/hacs/hacs/internal/platform/modeling"
	"github.com/hacs/hacs/pkg/pagination"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, errorMark, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hacs-server",
		Short:         "Resource modeling and reference-graph engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("output", "o", "", "Output format. One of: (json)")
	root.PersistentFlags().String("schema-dir", "", "Directory of extra JSON/YAML schema descriptors")

	root.AddCommand(serveCmd())
	root.AddCommand(modelsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(diffCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(bundleCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the modeling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// offlineService builds a service over the built-in catalog plus an optional
// schema directory, for CLI commands that do not start the server.
func offlineService(cmd *cobra.Command) (*modeling.Service, error) {
	reg := engine.NewRegistry()
	sources := []modeling.SchemaSource{modeling.NewCatalogSource()}
	if dir, _ := cmd.Flags().GetString("schema-dir"); dir != "" {
		sources = append(sources, modeling.NewDirSource(dir))
	}
	for _, rep := range modeling.LoadSchemas(cmd.Context(), reg, zerolog.Nop(), sources...) {
		if rep.Error != "" {
			return nil, fmt.Errorf("load %s: %s", rep.Source, rep.Error)
		}
	}
	return modeling.NewService(reg, zerolog.Nop(), 0)
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect registered resource types",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered resource types",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			r := svc.ListModels(pagination.Params{Limit: pagination.MaxLimit})
			return newPrinter(cmd).result(r, func(p *printer) {
				page := r.Data.(*pagination.Response)
				for _, name := range page.Data.([]string) {
					p.println(name)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "describe TYPE",
		Short: "Show the fields of a resource type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			r := svc.DescribeModel(args[0])
			return newPrinter(cmd).result(r, func(p *printer) {
				p.describe(r.Data.(*modeling.ModelDescription))
			})
		},
	})
	return cmd
}

func validateCmd() *cobra.Command {
	var (
		resourceType string
		fields       []string
	)
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a resource file against its type",
		Long: "Validate a JSON or YAML resource. The type comes from --type or the\n" +
			"resource's resource_type field. --fields validates against a subset.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			data, err := readResource(args[0])
			if err != nil {
				return err
			}
			if resourceType == "" {
				resourceType = engine.Resource(data).Type()
			}
			if resourceType == "" {
				return fmt.Errorf("%s: no resource_type; pass --type", args[0])
			}

			var r engine.Result
			if len(fields) > 0 {
				r = svc.ValidateSubset(resourceType, data, fields)
			} else {
				r = svc.ValidateResource(resourceType, data)
			}
			return newPrinter(cmd).validation(args[0], r)
		},
	}
	cmd.Flags().StringVarP(&resourceType, "type", "t", "", "Resource type to validate against")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Validate against a subset of fields")
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff BEFORE AFTER",
		Short: "Show field-level changes between two resource files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			before, err := readResource(args[0])
			if err != nil {
				return err
			}
			after, err := readResource(args[1])
			if err != nil {
				return err
			}
			r := svc.DiffResources(before, after)
			return newPrinter(cmd).result(r, func(p *printer) {
				p.diff(r.Data.(*modeling.DiffData))
			})
		},
	}
}

func graphCmd() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "graph FILE",
		Short: "Follow references from a start resource",
		Long: "FILE holds {\"start\": ..., \"links\": [...], \"pool\": [...]} as accepted by\n" +
			"POST /api/v1/graph/follow.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			var req modeling.FollowGraphRequest
			if err := readFile(args[0], &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("max-depth") {
				req.MaxDepth = &maxDepth
			}
			r := svc.FollowGraph(req)
			return newPrinter(cmd).result(r, func(p *printer) {
				p.graph(r.Data.(*engine.GraphTraversalResult))
			})
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", modeling.DefaultMaxGraphDepth, "Maximum traversal depth")
	return cmd
}

func bundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Work with resource bundles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			var b engine.Bundle
			if err := readFile(args[0], &b); err != nil {
				return err
			}
			return newPrinter(cmd).validation(args[0], svc.ValidateBundle(&b))
		},
	})

	var fhir bool
	compose := &cobra.Command{
		Use:   "compose FILE",
		Short: "Compose a bundle from a request file",
		Long: "FILE holds {\"bundle_type\": ..., \"entries\": [...]} as accepted by\n" +
			"POST /api/v1/bundles/compose. The bundle is written as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			var req modeling.ComposeRequest
			if err := readFile(args[0], &req); err != nil {
				return err
			}
			r := svc.ComposeBundle(req)
			if !r.Success {
				return newPrinter(cmd).result(r, nil)
			}
			b := r.Data.(*engine.Bundle)
			p := newPrinter(cmd)
			if fhir {
				return p.writeJSON(b.ToFHIR())
			}
			return p.writeJSON(b)
		},
	}
	compose.Flags().BoolVar(&fhir, "fhir", false, "Write a FHIR Bundle resource")
	cmd.AddCommand(compose)

	var tag, resourceType string
	show := &cobra.Command{
		Use:   "show FILE",
		Short: "List bundle entries by descending priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b engine.Bundle
			if err := readFile(args[0], &b); err != nil {
				return err
			}
			p := newPrinter(cmd)
			if resourceType != "" {
				resources := b.ResourcesByType(resourceType)
				if p.json {
					return p.writeJSON(resources)
				}
				for _, r := range resources {
					p.println(r.Type() + "/" + r.ID())
				}
				return nil
			}
			entries := b.SortedByPriority()
			if tag != "" {
				entries = (&engine.Bundle{Entries: entries}).EntriesByTag(tag)
			}
			if p.json {
				return p.writeJSON(entries)
			}
			p.entries(entries)
			return nil
		},
	}
	show.Flags().StringVar(&tag, "tag", "", "Only entries carrying this tag")
	show.Flags().StringVarP(&resourceType, "type", "t", "", "Only resources of this type")
	cmd.AddCommand(show)
	return cmd
}
