// storectl is a CLI tool for driving the storefront gateway.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	storectl list -gateway URL -token T -resource products [-page N] [-limit N] [-filter k=v] [-sort col:dir]
//	storectl get -gateway URL -token T -resource products -id 7
//	storectl create -gateway URL -token T -resource products -data '{"name":"..."}'
//	storectl update -gateway URL -token T -resource products -id 7 -data '{"name":"..."}'
//	storectl delete -gateway URL -token T -resource products -id 7
//	storectl coupons -gateway URL -total 250000
//	storectl best -gateway URL -total 250000
//	storectl apply -gateway URL -code SUMMER10 -total 250000 [-cart ID]
//
// Examples:
//
//	storectl list -gateway http://localhost:8080 -token "$TOKEN" -resource products -page 2 -filter status=active
//	CART=$(storectl apply -gateway http://localhost:8080 -code SUMMER10 -total 250000 -q)
//	storectl cart -gateway http://localhost:8080 -cart "$CART"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "list":
		runList(args)
	case "get":
		runGet(args)
	case "create":
		runCreate(args)
	case "update":
		runUpdate(args)
	case "delete":
		runDelete(args)
	case "coupons":
		runCoupons(args)
	case "best":
		runBest(args)
	case "validate":
		runValidate(args)
	case "apply":
		runApply(args)
	case "remove":
		runRemove(args)
	case "cart":
		runCart(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storectl - storefront gateway test tool

Usage:
  storectl <command> [options]

Admin commands (require -token):
  list      Browse one page of a resource collection
  get       Fetch one record
  create    Create a record from -data JSON
  update    Replace a record from -data JSON
  delete    Delete a record

Discount commands:
  coupons   List available coupons for a cart total
  best      Show the coupon that saves the most
  validate  Check a coupon code against a cart total
  apply     Apply a coupon to a cart
  remove    Remove the cart's applied coupon
  cart      Show the cart's discount state

Examples:
  storectl list -gateway http://localhost:8080 -token "$TOKEN" -resource products -page 2
  storectl coupons -gateway http://localhost:8080 -total 250000
  CART=$(storectl apply -gateway http://localhost:8080 -code SUMMER10 -total 250000 -q)
  storectl cart -gateway http://localhost:8080 -cart "$CART"

Run 'storectl <command> -h' for command-specific options.
`)
}

// commonFlags are the flags every command shares.
type commonFlags struct {
	gateway string
	token   string
	cartID  string
	quiet   bool
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fs.StringVar(&c.gateway, "gateway", envOr("GATEWAY_URL", "http://localhost:8080"), "gateway base URL")
	fs.StringVar(&c.token, "token", os.Getenv("GATEWAY_TOKEN"), "admin bearer token")
	fs.StringVar(&c.cartID, "cart", "", "cart ID (discount commands)")
	fs.BoolVar(&c.quiet, "q", false, "print only the primary value")
	return fs, c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// multiFlag collects repeated -filter k=v flags.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

// === Admin commands ===

func runList(args []string) {
	fs, c := newFlagSet("list")
	resource := fs.String("resource", "", "resource collection (required)")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	sort := fs.String("sort", "", "sort as column:direction, e.g. price:desc")
	var filters multiFlag
	fs.Var(&filters, "filter", "filter as key=value (repeatable)")
	fs.Parse(args)
	requireFlag(*resource, "-resource")

	q := url.Values{}
	if *page > 0 {
		q.Set("page", fmt.Sprint(*page))
	}
	if *limit > 0 {
		q.Set("limit", fmt.Sprint(*limit))
	}
	if *sort != "" {
		col, dir, _ := strings.Cut(*sort, ":")
		q.Set("sort_by", col)
		if dir != "" {
			q.Set("sort_order", dir)
		}
	}
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			fatal("invalid -filter %q, want key=value", f)
		}
		q.Set(key, value)
	}

	path := "/admin/" + *resource
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	body := request(c, http.MethodGet, path, nil)
	printJSON(body, c.quiet, "")
}

func runGet(args []string) {
	fs, c := newFlagSet("get")
	resource := fs.String("resource", "", "resource collection (required)")
	id := fs.String("id", "", "record ID (required)")
	fs.Parse(args)
	requireFlag(*resource, "-resource")
	requireFlag(*id, "-id")

	body := request(c, http.MethodGet, "/admin/"+*resource+"/"+*id, nil)
	printJSON(body, c.quiet, "")
}

func runCreate(args []string) {
	fs, c := newFlagSet("create")
	resource := fs.String("resource", "", "resource collection (required)")
	data := fs.String("data", "", "record JSON (required, or - for stdin)")
	fs.Parse(args)
	requireFlag(*resource, "-resource")

	body := request(c, http.MethodPost, "/admin/"+*resource, readData(*data))
	printJSON(body, c.quiet, "data.id")
}

func runUpdate(args []string) {
	fs, c := newFlagSet("update")
	resource := fs.String("resource", "", "resource collection (required)")
	id := fs.String("id", "", "record ID (required)")
	data := fs.String("data", "", "record JSON (required, or - for stdin)")
	fs.Parse(args)
	requireFlag(*resource, "-resource")
	requireFlag(*id, "-id")

	body := request(c, http.MethodPut, "/admin/"+*resource+"/"+*id, readData(*data))
	printJSON(body, c.quiet, "")
}

func runDelete(args []string) {
	fs, c := newFlagSet("delete")
	resource := fs.String("resource", "", "resource collection (required)")
	id := fs.String("id", "", "record ID (required)")
	fs.Parse(args)
	requireFlag(*resource, "-resource")
	requireFlag(*id, "-id")

	body := request(c, http.MethodDelete, "/admin/"+*resource+"/"+*id, nil)
	printJSON(body, c.quiet, "")
}

// === Discount commands ===

func runCoupons(args []string) {
	fs, c := newFlagSet("coupons")
	total := fs.Int64("total", 0, "cart total in whole VND (required)")
	fs.Parse(args)
	requirePositive(*total, "-total")

	body := request(c, http.MethodGet, fmt.Sprintf("/discounts/available?cart_total=%d", *total), nil)
	printJSON(body, c.quiet, "")
}

func runBest(args []string) {
	fs, c := newFlagSet("best")
	total := fs.Int64("total", 0, "cart total in whole VND (required)")
	fs.Parse(args)
	requirePositive(*total, "-total")

	body := request(c, http.MethodGet, fmt.Sprintf("/discounts/best?cart_total=%d", *total), nil)
	printJSON(body, c.quiet, "data.coupon.code")
}

func runValidate(args []string) {
	fs, c := newFlagSet("validate")
	code := fs.String("code", "", "coupon code (required)")
	total := fs.Int64("total", 0, "cart total in whole VND (required)")
	fs.Parse(args)
	requireFlag(*code, "-code")
	requirePositive(*total, "-total")

	payload := fmt.Sprintf(`{"code":%q,"cart_total":%d}`, *code, *total)
	body := request(c, http.MethodPost, "/discounts/validate", strings.NewReader(payload))
	printJSON(body, c.quiet, "")
}

func runApply(args []string) {
	fs, c := newFlagSet("apply")
	code := fs.String("code", "", "coupon code (required)")
	total := fs.Int64("total", 0, "cart total in whole VND (required)")
	fs.Parse(args)
	requireFlag(*code, "-code")
	requirePositive(*total, "-total")

	payload := fmt.Sprintf(`{"code":%q,"cart_total":%d}`, *code, *total)
	body, headers := requestWithHeaders(c, http.MethodPost, "/discounts/apply", strings.NewReader(payload))
	if c.quiet {
		// The cart ID is the value scripts need to chain commands.
		fmt.Println(headers.Get("X-Cart-ID"))
		return
	}
	fmt.Fprintf(os.Stderr, "cart: %s\n", headers.Get("X-Cart-ID"))
	printJSON(body, false, "")
}

func runRemove(args []string) {
	fs, c := newFlagSet("remove")
	fs.Parse(args)
	requireFlag(c.cartID, "-cart")

	body := request(c, http.MethodPost, "/discounts/remove", nil)
	printJSON(body, c.quiet, "")
}

func runCart(args []string) {
	fs, c := newFlagSet("cart")
	fs.Parse(args)

	body := request(c, http.MethodGet, "/discounts/cart", nil)
	printJSON(body, c.quiet, "cart_id")
}

// === HTTP plumbing ===

func request(c *commonFlags, method, path string, body io.Reader) []byte {
	respBody, _ := requestWithHeaders(c, method, path, body)
	return respBody
}

func requestWithHeaders(c *commonFlags, method, path string, body io.Reader) ([]byte, http.Header) {
	req, err := http.NewRequest(method, strings.TrimSuffix(c.gateway, "/")+path, body)
	if err != nil {
		fatal("building request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cartID != "" {
		req.Header.Set("X-Cart-ID", c.cartID)
	}

	resp, err := client.Do(req)
	if err != nil {
		fatal("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("reading response: %v", err)
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "HTTP %d\n%s\n", resp.StatusCode, indentJSON(respBody))
		os.Exit(1)
	}
	return respBody, resp.Header
}

func readData(data string) io.Reader {
	if data == "" {
		fatal("-data is required")
	}
	if data == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal("reading stdin: %v", err)
		}
		return bytes.NewReader(raw)
	}
	return strings.NewReader(data)
}

// printJSON pretty-prints the response. In quiet mode, prints only the
// value at quietPath (dot-separated), for capturing in scripts.
func printJSON(body []byte, quiet bool, quietPath string) {
	if quiet && quietPath != "" {
		if v, ok := lookupPath(body, quietPath); ok {
			fmt.Println(v)
			return
		}
	}
	fmt.Println(indentJSON(body))
}

func indentJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

// lookupPath walks a dot-separated path through a JSON document and
// returns the scalar at the end.
func lookupPath(body []byte, path string) (string, bool) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", false
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return "", false
		}
		doc, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	switch v := doc.(type) {
	case string:
		return v, true
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%f", v), ".000000"), true
	default:
		return "", false
	}
}

func requireFlag(value, name string) {
	if value == "" {
		fatal("%s is required", name)
	}
}

func requirePositive(value int64, name string) {
	if value <= 0 {
		fatal("%s must be a positive amount", name)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
