// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Catalog and order record types shared by the backend client and the
// pipeline nodes. Fields mirror the storefront API's JSON exactly; the
// *Card/*Summary projections are the trimmed shapes sent to the frontend.
package datatypes

import "strings"

// =============================================================================
// Storefront Records
// =============================================================================

// Product is a catalog record as returned by GET /products.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image,omitempty"`
	Sale          bool     `json:"sale"`
	Discount      float64  `json:"discount"`
	Fabric        string   `json:"fabric,omitempty"`
	Colors        []string `json:"colors"`
	Sizes         []string `json:"sizes"`
	Category      string   `json:"category,omitempty"`
}

// OrderItem is one line item of an order.
type OrderItem struct {
	ProductID     string  `json:"productId"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`
}

// Order is an order record as returned by GET /orders/{n} and GET /me/orders.
type Order struct {
	OrderNumber     string      `json:"orderNumber"`
	Status          string      `json:"status"`
	Subtotal        float64     `json:"subtotal"`
	Discount        float64     `json:"discount"`
	Shipping        float64     `json:"shipping"`
	Total           float64     `json:"total"`
	ShipLine1       string      `json:"shipLine1,omitempty"`
	ShipLine2       string      `json:"shipLine2,omitempty"`
	ShipCity        string      `json:"shipCity,omitempty"`
	ShipState       string      `json:"shipState,omitempty"`
	ShipPostal      string      `json:"shipPostal,omitempty"`
	ShipCountryCode string      `json:"shipCountryCode,omitempty"`
	CreatedAt       string      `json:"createdAt"`
	Items           []OrderItem `json:"items"`
}

// =============================================================================
// Frontend Projections
// =============================================================================

// ProductCard is the trimmed product shape the frontend renders.
type ProductCard struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice"`
	Image         string   `json:"image"`
	Sale          bool     `json:"sale"`
	Discount      float64  `json:"discount"`
	Fabric        string   `json:"fabric"`
	Colors        []string `json:"colors"`
	Sizes         []string `json:"sizes"`
}

// NewProductCard projects a Product onto the card shape, applying the
// documented defaults for absent fields.
func NewProductCard(p Product) ProductCard {
	card := ProductCard{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.Price,
		Image:         p.Image,
		Sale:          p.Sale,
		Discount:      p.Discount,
		Fabric:        "Premium Fabric",
		Colors:        []string{},
		Sizes:         []string{},
	}
	if p.OriginalPrice != nil {
		card.OriginalPrice = *p.OriginalPrice
	}
	if p.Fabric != "" {
		card.Fabric = p.Fabric
	}
	if p.Colors != nil {
		card.Colors = p.Colors
	}
	if p.Sizes != nil {
		card.Sizes = p.Sizes
	}
	return card
}

// OrderLineItem is the trimmed line-item shape the frontend renders.
type OrderLineItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// OrderSummary is the trimmed order shape the frontend renders.
type OrderSummary struct {
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	Subtotal        float64         `json:"subtotal"`
	Discount        float64         `json:"discount"`
	Shipping        float64         `json:"shipping"`
	Total           float64         `json:"total"`
	ShippingAddress string          `json:"shippingAddress"`
	PlacedAt        string          `json:"placedAt"`
	Items           []OrderLineItem `json:"items"`
}

// NewOrderSummary projects an Order onto the summary shape. The shipping
// address is the comma-joined non-blank address components.
func NewOrderSummary(o Order) OrderSummary {
	parts := make([]string, 0, 6)
	for _, p := range []string{
		o.ShipLine1, o.ShipLine2, o.ShipCity,
		o.ShipState, o.ShipPostal, o.ShipCountryCode,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	items := make([]OrderLineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderLineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Size:      it.SelectedSize,
			Color:     it.SelectedColor,
		})
	}

	return OrderSummary{
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		Shipping:        o.Shipping,
		Total:           o.Total,
		ShippingAddress: strings.Join(parts, ", "),
		PlacedAt:        o.CreatedAt,
		Items:           items,
	}
}
