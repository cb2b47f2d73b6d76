// Package resolution implements the tiered matching of free-form shade
// selections against a catalog snapshot. Resolution is total: every input
// produces a ResolvedAttribute, degrading to raw-text fallback when the
// catalog has no match.
package resolution

import (
	"context"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/gtuazon18/rxn3d-core/internal/build"
	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
	"github.com/gtuazon18/rxn3d-core/pkg/logger"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
)

var tracer = otel.Tracer("rxn3d-core/internal/resolution")

var (
	brandResolutionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "brand_resolution_total",
		Help:      "The total number of brand resolutions, labeled by the matching tier that won.",
	}, []string{"tier"})

	variantResolutionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "variant_resolution_total",
		Help:      "The total number of variant resolutions, labeled by outcome.",
	}, []string{"outcome"})
)

const (
	tierExact      = "exact"
	tierSubstring  = "substring"
	tierNormalized = "normalized"
	tierUnresolved = "unresolved"

	outcomeBrandScoped = "brand_scoped"
	outcomeCrossBrand  = "cross_brand"
	outcomeUnresolved  = "unresolved"
)

// Resolver matches raw selections against catalog snapshots.
type Resolver struct {
	logger logger.Logger
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*Resolver)

// WithLogger sets the logger for the resolver.
func WithLogger(l logger.Logger) ResolverOpt {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver builds a Resolver.
func NewResolver(opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveBrand matches a selection intended as a brand identifier. Tiers are
// tried in order, first match wins:
//
//  1. exact: name, systemName, or id rendered as a string
//  2. substring: either containment direction, for truncated or concatenated
//     labels
//  3. normalized: lower-cased with non-alphanumerics stripped, for
//     punctuation and spacing drift
//
// On a total non-match the id fields stay unset and RawPart1 carries the raw
// selection so the UI can still display what the user picked.
func (r *Resolver) ResolveBrand(ctx context.Context, idx *catalog.Index, selection string) shade.ResolvedAttribute {
	_, span := tracer.Start(ctx, "resolution.ResolveBrand")
	defer span.End()

	if strings.TrimSpace(selection) != "" {
		for _, b := range idx.Brands() {
			if b.Name == selection || (b.SystemName != "" && b.SystemName == selection) ||
				strconv.FormatInt(b.ID, 10) == selection {
				brandResolutionCounter.WithLabelValues(tierExact).Inc()
				return brandAttribute(b)
			}
		}

		for _, b := range idx.Brands() {
			if strings.Contains(b.Name, selection) || strings.Contains(selection, b.Name) {
				brandResolutionCounter.WithLabelValues(tierSubstring).Inc()
				return brandAttribute(b)
			}
		}

		if want := normalize(selection); want != "" {
			for _, b := range idx.Brands() {
				if normalize(b.Name) == want {
					brandResolutionCounter.WithLabelValues(tierNormalized).Inc()
					return brandAttribute(b)
				}
			}
		}
	}

	brandResolutionCounter.WithLabelValues(tierUnresolved).Inc()
	r.logger.DebugWithContext(ctx, "brand selection did not resolve",
		zap.String("selection", selection),
		zap.Int("catalog_brands", idx.Len()))

	return shade.ResolvedAttribute{RawPart1: selection}
}

// ResolveVariant matches a selection intended as a variant, given the
// attribute state left by brand resolution. The resolved brand's variants are
// searched first; on a miss every brand is scanned and the first owner of a
// matching variant becomes the effective brand, overriding the tentative
// brand match. A variant match is stronger evidence than a fuzzy brand-name
// match, and the stored brand/variant pair must stay internally consistent.
func (r *Resolver) ResolveVariant(ctx context.Context, idx *catalog.Index, selection string, attr shade.ResolvedAttribute) shade.ResolvedAttribute {
	_, span := tracer.Start(ctx, "resolution.ResolveVariant")
	defer span.End()

	if strings.TrimSpace(selection) == "" {
		variantResolutionCounter.WithLabelValues(outcomeUnresolved).Inc()
		attr.VariantID = nil
		attr.VariantName = ""
		attr.RawPart2 = selection
		return attr
	}

	if attr.BrandID != nil {
		for _, b := range idx.Brands() {
			if b.ID != *attr.BrandID {
				continue
			}
			for _, v := range b.Variants {
				if catalog.VariantMatches(v, selection) {
					variantResolutionCounter.WithLabelValues(outcomeBrandScoped).Inc()
					return withVariant(attr, b, v)
				}
			}
			break
		}
	}

	if owners := idx.FindBrandsWithVariant(selection); len(owners) > 0 {
		owner := owners[0]
		for _, v := range owner.Variants {
			if catalog.VariantMatches(v, selection) {
				variantResolutionCounter.WithLabelValues(outcomeCrossBrand).Inc()
				if attr.BrandID != nil && *attr.BrandID != owner.ID {
					r.logger.DebugWithContext(ctx, "variant match overrides tentative brand",
						zap.Int64("tentative_brand_id", *attr.BrandID),
						zap.Int64("effective_brand_id", owner.ID),
						zap.String("selection", selection))
				}
				// rebuild from the owning brand so the stored pair is consistent
				return withVariant(brandAttribute(owner), owner, v)
			}
		}
	}

	variantResolutionCounter.WithLabelValues(outcomeUnresolved).Inc()
	r.logger.DebugWithContext(ctx, "variant selection did not resolve",
		zap.String("selection", selection),
		zap.Int("catalog_brands", idx.Len()))

	attr.VariantID = nil
	attr.VariantName = ""
	attr.RawPart2 = selection
	return attr
}

func brandAttribute(b catalog.Brand) shade.ResolvedAttribute {
	id := b.ID
	return shade.ResolvedAttribute{
		BrandID:   &id,
		BrandName: b.Name,
		RawPart1:  strconv.FormatInt(b.ID, 10),
	}
}

func withVariant(attr shade.ResolvedAttribute, b catalog.Brand, v catalog.Variant) shade.ResolvedAttribute {
	vid := v.ID
	attr.VariantID = &vid
	attr.VariantName = v.Name
	attr.RawPart1 = strconv.FormatInt(b.ID, 10)
	attr.RawPart2 = strconv.FormatInt(v.ID, 10)
	return attr
}
