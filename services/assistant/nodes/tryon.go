// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
)

// canonicalProducts are the catalog names fuzzy-matched against the user's
// typed product name before searching.
var canonicalProducts = []string{
	"premium suit", "classic kurta", "silk dress",
	"casual shirt", "formal shalwar",
}

// matchThreshold is the token-sort similarity (percent) above which the
// canonical name replaces the user's input.
const matchThreshold = 70

// runTryOn executes the whole try-on flow: name correction, product
// resolution, image download, job submission and polling.
//
// # Description
//
// Every failure is recorded in State.TryOnError and the node returns
// successfully; the response node turns the recorded error into the error
// reply. Fixed messages cover the validation and resolution failures
// ("Missing image or product name.", "Product not found.", "Product image
// missing."); storefront failures carry a "Product fetch error:" prefix and
// generation-phase failures an "Image Generation error:" prefix.
func (d *Deps) runTryOn(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.runTryOn")
	defer span.End()

	if st.ProductName == "" || len(st.UploadedImage) == 0 {
		st.TryOnError = "Missing image or product name."
		return st, nil
	}

	corrected := correctProductName(st.ProductName)
	slog.InfoContext(ctx, "try-on product resolved", "input", st.ProductName, "corrected", corrected)

	garment, err := d.resolveGarmentImage(ctx, st, corrected)
	if err != nil || st.TryOnError != "" {
		return st, nil
	}

	job, err := d.TryOn.Submit(ctx, st.UploadedImage, garment)
	if err != nil {
		st.TryOnError = fmt.Sprintf("Image Generation error: %v", err)
		return st, nil
	}
	slog.InfoContext(ctx, "try-on job submitted", "jobID", job.JobID)

	image, err := d.TryOn.Poll(ctx, job)
	if err != nil {
		st.TryOnError = fmt.Sprintf("Image Generation error: %v", err)
		return st, nil
	}

	st.GeneratedImage = image
	slog.InfoContext(ctx, "try-on image generated", "jobID", job.JobID)
	return st, nil
}

// resolveGarmentImage finds the product and downloads its image bytes.
// Resolution failures are written to st.TryOnError; the error return only
// signals that the caller should stop.
func (d *Deps) resolveGarmentImage(ctx context.Context, st *graph.State, name string) ([]byte, error) {
	products, err := d.Backend.SearchProducts(ctx, datatypes.Filter{"q": name})
	if err != nil {
		st.TryOnError = fmt.Sprintf("Product fetch error: %v", err)
		return nil, err
	}
	if len(products) == 0 {
		st.TryOnError = "Product not found."
		return nil, nil
	}
	product := products[0]
	if product.Image == "" {
		st.TryOnError = "Product image missing."
		return nil, nil
	}

	garment, err := d.Backend.DownloadImage(ctx, product.Image)
	if err != nil {
		st.TryOnError = fmt.Sprintf("Product fetch error: %v", err)
		return nil, err
	}
	return garment, nil
}

// correctProductName fuzzy-matches the input against the canonical catalog
// names using token-sort similarity and keeps the input when no canonical
// name clears the threshold.
func correctProductName(input string) string {
	lowered := strings.ToLower(input)
	best, bestScore := "", 0.0
	for _, candidate := range canonicalProducts {
		if score := tokenSortRatio(lowered, candidate); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore > matchThreshold {
		return best
	}
	return input
}

// tokenSortRatio is the Levenshtein similarity of the two strings with
// their whitespace tokens sorted, scaled to percent. Sorting makes the
// score order-insensitive, so "suit premium" still matches "premium suit".
func tokenSortRatio(a, b string) float64 {
	return levenshtein.Similarity(sortTokens(a), sortTokens(b), nil) * 100
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tryOnResponse converts the try-on outcome into the final response list.
// The generated image is wrapped as a PNG data URL for direct rendering.
func tryOnResponse(_ context.Context, st *graph.State) (*graph.State, error) {
	if st.TryOnError != "" {
		st.Response = []datatypes.Reply{{
			Type:    datatypes.ReplyTypeError,
			Message: st.TryOnError,
		}}
		return st, nil
	}

	var resultImage *string
	if st.GeneratedImage != "" {
		url := "data:image/png;base64," + st.GeneratedImage
		resultImage = &url
	}

	st.Response = []datatypes.Reply{{
		Type:        datatypes.ReplyTypeTryOn,
		Message:     "Here's your virtual try-on result.",
		ResultImage: resultImage,
	}}
	return st, nil
}
