// MCP transport handler using the official MCP Go SDK.
// Exposes list browsing and coupon evaluation as MCP tools so agents can
// drive the storefront without scraping the HTTP surface.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/phovu7426/truyentranh/internal/discount"
	"github.com/phovu7426/truyentranh/internal/model"
)

// === MCP Tool Input/Output Types ===

// BrowseListInput is the input schema for the browse_list tool.
type BrowseListInput struct {
	Resource string            `json:"resource" jsonschema:"resource collection to browse (e.g. products),required"`
	Page     int               `json:"page,omitempty" jsonschema:"page number, 1-based"`
	Limit    int               `json:"limit,omitempty" jsonschema:"page size"`
	Filters  map[string]string `json:"filters,omitempty" jsonschema:"filter key/value pairs passed to the backend"`
	SortBy   string            `json:"sort_by,omitempty" jsonschema:"sort column"`
	SortDir  string            `json:"sort_order,omitempty" jsonschema:"asc or desc"`
}

// BrowseListOutput is one page of a collection.
type BrowseListOutput struct {
	State string                `json:"state"`
	Items []json.RawMessage     `json:"items"`
	Meta  *model.PaginationMeta `json:"meta,omitempty"`
}

// ValidateCouponInput is the input schema for the validate_coupon tool.
type ValidateCouponInput struct {
	Code      string `json:"code" jsonschema:"coupon code,required"`
	CartTotal int64  `json:"cart_total" jsonschema:"cart total in whole VND,required"`
}

// ValidateCouponOutput reports the verdict and the money effect.
type ValidateCouponOutput struct {
	Validation     discount.Validation `json:"validation"`
	DiscountAmount int64               `json:"discount_amount"`
	FinalAmount    int64               `json:"final_amount"`
}

// BestCouponInput is the input schema for the best_coupon tool.
type BestCouponInput struct {
	CartTotal int64 `json:"cart_total" jsonschema:"cart total in whole VND,required"`
}

// BestCouponOutput is the winning coupon, or found=false.
type BestCouponOutput struct {
	Found          bool             `json:"found"`
	Coupon         *discount.Coupon `json:"coupon,omitempty"`
	DiscountAmount int64            `json:"discount_amount,omitempty"`
	FinalAmount    int64            `json:"final_amount,omitempty"`
}

// NewMCPServer creates an MCP server with the storefront tools
// registered. The tools mirror the HTTP surface.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-gateway",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront gateway. Use browse_list to page through " +
				"collections, and validate_coupon / best_coupon to evaluate discounts " +
				"against a cart total.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browse_list",
		Description: "Browse one page of a resource collection with filters, sort, and pagination.",
	}, h.mcpBrowseList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_coupon",
		Description: "Check whether a coupon code applies to a cart total and what it would save.",
	}, h.mcpValidateCoupon)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "best_coupon",
		Description: "Find the applicable coupon that saves the most for a cart total.",
	}, h.mcpBestCoupon)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your router.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpBrowseList(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input BrowseListInput,
) (*mcp.CallToolResult, *BrowseListOutput, error) {
	view, ok := h.resources[input.Resource]
	if !ok {
		return nil, nil, fmt.Errorf("unknown resource %q", input.Resource)
	}

	q := url.Values{}
	if input.Page > 0 {
		q.Set("page", fmt.Sprint(input.Page))
	}
	if input.Limit > 0 {
		q.Set("limit", fmt.Sprint(input.Limit))
	}
	if input.SortBy != "" {
		q.Set("sort_by", input.SortBy)
		q.Set("sort_order", input.SortDir)
	}
	for key, value := range input.Filters {
		q.Set(key, value)
	}

	if err := view.controller.OnQueryChange(ctx, q); err != nil {
		return nil, nil, h.mcpError(err)
	}

	snap := view.controller.Snapshot()
	out := &BrowseListOutput{
		State: snap.State.String(),
		Items: make([]json.RawMessage, len(snap.Items)),
		Meta:  snap.Meta,
	}
	for i, item := range snap.Items {
		out.Items[i] = item.Raw
	}
	return nil, out, nil
}

func (h *Handler) mcpValidateCoupon(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ValidateCouponInput,
) (*mcp.CallToolResult, *ValidateCouponOutput, error) {
	if input.Code == "" {
		return nil, nil, fmt.Errorf("code is required")
	}

	sess := discount.NewSession(h.client)
	coupons, err := sess.FetchAvailable(ctx, input.CartTotal)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	coupon := discount.FindByCode(coupons, input.Code)
	if coupon == nil {
		return nil, &ValidateCouponOutput{
			Validation: discount.Validation{
				Code:    discount.CodeNotFound,
				Message: "coupon code not recognized",
			},
		}, nil
	}

	out := &ValidateCouponOutput{
		Validation: discount.ValidateAt(*coupon, input.CartTotal, time.Now()),
	}
	if out.Validation.Valid {
		out.DiscountAmount = discount.Amount(*coupon, input.CartTotal)
		out.FinalAmount = discount.FinalAmount(*coupon, input.CartTotal)
	}
	return nil, out, nil
}

func (h *Handler) mcpBestCoupon(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input BestCouponInput,
) (*mcp.CallToolResult, *BestCouponOutput, error) {
	sess := discount.NewSession(h.client)
	coupons, err := sess.FetchAvailable(ctx, input.CartTotal)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	best := discount.Best(coupons, input.CartTotal, time.Now())
	if best == nil {
		return nil, &BestCouponOutput{}, nil
	}
	return nil, &BestCouponOutput{
		Found:          true,
		Coupon:         best,
		DiscountAmount: discount.Amount(*best, input.CartTotal),
		FinalAmount:    discount.FinalAmount(*best, input.CartTotal),
	}, nil
}

// mcpError converts gateway errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if apiErr, ok := err.(*model.APIError); ok {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
