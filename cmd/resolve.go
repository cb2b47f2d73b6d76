package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gtuazon18/rxn3d-core/cmd/util"
	"github.com/gtuazon18/rxn3d-core/internal/resolution"
	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
	catalogsqlite "github.com/gtuazon18/rxn3d-core/pkg/catalog/sqlite"
	"github.com/gtuazon18/rxn3d-core/pkg/logger"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
)

// NewResolveCommand returns the command that resolves a selection against a
// catalog file or sqlite replica and prints the outcome. Useful for checking
// what the engine will make of a given input.
func NewResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <selection>",
		Short: "Resolve a shade selection against a catalog",
		Long: `Resolve a shade selection against a catalog loaded from a JSON file or a
sqlite replica, and print the resulting attribute as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}

	flags := cmd.Flags()
	flags.String("catalog", "", "path to a catalog JSON file or sqlite replica (.db/.sqlite)")
	flags.Int64("subject", 0, "subject id to load the catalog for")
	flags.String("kind", string(shade.TeethShadeBrand), fmt.Sprintf("attribute kind to resolve as (one of %v)", shade.Kinds()))
	flags.String("brand", "", "already-selected brand, as context for variant resolution")
	flags.String("log-format", "text", "log output format (text or json)")
	flags.String("log-level", "none", "log level (none, debug, info, warn, error, fatal)")

	util.MustBindPFlag("resolve.catalog", flags.Lookup("catalog"))
	util.MustBindEnv("resolve.catalog", "RXN3D_RESOLVE_CATALOG")
	util.MustBindPFlag("resolve.subject", flags.Lookup("subject"))
	util.MustBindEnv("resolve.subject", "RXN3D_RESOLVE_SUBJECT")
	util.MustBindPFlag("resolve.kind", flags.Lookup("kind"))

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	selection := args[0]

	catalogPath := viper.GetString("resolve.catalog")
	if catalogPath == "" {
		catalogPath, _ = cmd.Flags().GetString("catalog")
	}
	if catalogPath == "" {
		return fmt.Errorf("no catalog given: set --catalog or RXN3D_RESOLVE_CATALOG")
	}
	subjectID := viper.GetInt64("resolve.subject")
	kindRaw, _ := cmd.Flags().GetString("kind")
	brandContext, _ := cmd.Flags().GetString("brand")
	logFormat, _ := cmd.Flags().GetString("log-format")
	logLevel, _ := cmd.Flags().GetString("log-level")

	kind, err := shade.ParseKind(kindRaw)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logFormat, logLevel)
	if err != nil {
		return err
	}

	src, cleanup, err := openCatalogSource(catalogPath, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	idx, err := catalog.Load(ctx, src, subjectID)
	if err != nil {
		return err
	}

	resolver := resolution.NewResolver(resolution.WithLogger(log))

	var attr shade.ResolvedAttribute
	if kind.IsBrandLevel() {
		attr = resolver.ResolveBrand(ctx, idx, selection)
	} else {
		if brandContext != "" {
			attr = resolver.ResolveBrand(ctx, idx, brandContext)
		}
		attr = resolver.ResolveVariant(ctx, idx, selection, attr)
	}

	out, err := json.MarshalIndent(resolveOutput{
		Kind:        string(kind),
		BrandID:     attr.BrandID,
		BrandName:   attr.BrandName,
		VariantID:   attr.VariantID,
		VariantName: attr.VariantName,
		RawPart1:    attr.RawPart1,
		RawPart2:    attr.RawPart2,
		Resolved:    attr.Resolved(),
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

type resolveOutput struct {
	Kind        string `json:"kind"`
	BrandID     *int64 `json:"brandId"`
	BrandName   string `json:"brandName,omitempty"`
	VariantID   *int64 `json:"variantId"`
	VariantName string `json:"variantName,omitempty"`
	RawPart1    string `json:"rawPart1"`
	RawPart2    string `json:"rawPart2"`
	Resolved    bool   `json:"resolved"`
}

func openCatalogSource(path string, log logger.Logger) (catalog.DataSource, func(), error) {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		src, err := catalogsqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	}
	return catalog.NewFileSource(path, log), func() {}, nil
}
