// preorderctl is a CLI tool for exercising the pre-order service.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	preorderctl resolve -service URL -handle <preorder-handle> -sku <selected-sku> [-original <handle>]
//	preorderctl add -service URL -variant <id> [-qty N] [-sku SKU] [-original-product ID] [-preorder-product ID]
//	preorderctl session -service URL -handle <preorder-handle> -product <original-id> -sku <selected-sku>
//	preorderctl health -service URL
//
// Examples:
//
//	preorderctl resolve -service http://localhost:8080 -handle widget-preorder -sku WIDGET-M
//	VID=$(preorderctl resolve -service http://localhost:8080 -handle widget-preorder -sku WIDGET-M -q)
//	preorderctl add -service http://localhost:8080 -variant $VID -qty 2
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

	"github.com/gorilla/websocket"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serviceURL string
	quiet      bool
	noColor    bool
	verbose    bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen = "", "", ""
	colorYellow, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "resolve":
		runResolve(args)
	case "add":
		runAdd(args)
	case "session":
		runSession(args)
	case "health":
		runHealth(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `preorderctl - pre-order service test tool

Usage:
  preorderctl <command> [options]

Commands:
  resolve   Resolve the pre-order variant for a selected SKU
  add       Add a pre-order variant to the storefront cart
  session   Drive one WebSocket session: init, select, submit
  health    Check service health

Examples:
  # Resolve and capture the variant ID
  VID=$(preorderctl resolve -service http://localhost:8080 -handle widget-preorder -sku WIDGET-M -q)

  # Add it to the cart with linkage metadata
  preorderctl add -service http://localhost:8080 -variant "$VID" -sku WIDGET-M -qty 2

  # Watch the full resolution flow over a session
  preorderctl session -service http://localhost:8080 -handle widget-preorder -product 123 -sku WIDGET-M

Run 'preorderctl <command> -h' for command-specific options.
`)
}

// =============================================================================
// RESOLVE COMMAND
// =============================================================================

func runResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	fs.StringVar(&serviceURL, "service", "http://localhost:8080", "Service base URL")

	var handle, sku, original string
	fs.StringVar(&handle, "handle", "", "Pre-order product handle (required)")
	fs.StringVar(&sku, "sku", "", "Selected variant SKU (required)")
	fs.StringVar(&original, "original", "", "Primary product handle (enables positional matching)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the variant ID")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if handle == "" || sku == "" {
		fs.Usage()
		os.Exit(1)
	}

	q := url.Values{}
	q.Set("handle", handle)
	q.Set("sku", sku)
	if original != "" {
		q.Set("original", original)
	}

	resp, err := doRequest("GET", "/preorder/resolve?"+q.Encode(), nil)
	if err != nil {
		fatal("Resolve failed: %v", err)
	}

	variantID, _ := resp["variant_id"].(string)
	if quiet {
		fmt.Println(variantID)
		return
	}

	printSuccess("Resolved %s → %s (%v)", sku, variantID, resp["strategy"])
	if price, ok := resp["formatted_price"].(string); ok {
		fmt.Printf("  Price: %s%s%s\n", colorGreen, price, colorReset)
	}
	if avail, ok := resp["available"].(bool); ok && !avail {
		printWarning("Variant is not available for purchase")
	}
}

// =============================================================================
// ADD COMMAND
// =============================================================================

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fs.StringVar(&serviceURL, "service", "http://localhost:8080", "Service base URL")

	var variantID, sku, originalProduct, preorderProduct, originalHandle, sections string
	var qty int
	fs.StringVar(&variantID, "variant", "", "Pre-order variant ID (required)")
	fs.IntVar(&qty, "qty", 1, "Quantity")
	fs.StringVar(&sku, "sku", "", "Matched SKU for linkage metadata")
	fs.StringVar(&originalProduct, "original-product", "", "Primary product ID for linkage metadata")
	fs.StringVar(&preorderProduct, "preorder-product", "", "Pre-order product ID for linkage metadata")
	fs.StringVar(&originalHandle, "original-handle", "", "Primary product handle for linkage metadata")
	fs.StringVar(&sections, "sections", "", "Comma-separated cart section IDs")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the item count")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if variantID == "" {
		fs.Usage()
		os.Exit(1)
	}

	body := map[string]interface{}{
		"variant_id":          variantID,
		"quantity":            qty,
		"matched_sku":         sku,
		"original_product_id": originalProduct,
		"preorder_product_id": preorderProduct,
		"original_handle":     originalHandle,
	}
	if sections != "" {
		body["sections"] = strings.Split(sections, ",")
	}

	resp, err := doRequest("POST", "/preorder/cart/add", body)
	if err != nil {
		fatal("Add failed: %v", err)
	}

	count, _ := resp["item_count"].(float64)
	if quiet {
		fmt.Println(int(count))
		return
	}
	printSuccess("Added %s x%d (cart has %d items)", variantID, qty, int(count))
}

// =============================================================================
// SESSION COMMAND
// =============================================================================

// sessionFrame mirrors the service's WebSocket envelope loosely; the CLI
// only needs the discriminator and a few display fields.
type sessionFrame struct {
	Type      string                 `json:"type"`
	State     string                 `json:"state,omitempty"`
	Label     string                 `json:"label,omitempty"`
	Formatted string                 `json:"formatted,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Added     map[string]interface{} `json:"added,omitempty"`
}

func runSession(args []string) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	fs.StringVar(&serviceURL, "service", "http://localhost:8080", "Service base URL")

	var handle, productID, preorderProduct, sku string
	var submit bool
	fs.StringVar(&handle, "handle", "", "Pre-order product handle (required)")
	fs.StringVar(&productID, "product", "", "Primary product ID (required)")
	fs.StringVar(&preorderProduct, "preorder-product", "", "Pre-order product ID")
	fs.StringVar(&sku, "sku", "", "Selected variant SKU (required)")
	fs.BoolVar(&submit, "submit", false, "Submit after the control becomes ready")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if handle == "" || productID == "" || sku == "" {
		fs.Usage()
		os.Exit(1)
	}

	wsURL := strings.Replace(serviceURL, "http", "ws", 1) + "/preorder/session"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fatal("Dialing session: %v", err)
	}
	defer conn.Close()

	send := func(frame map[string]interface{}) {
		if err := conn.WriteJSON(frame); err != nil {
			fatal("Sending frame: %v", err)
		}
	}

	send(map[string]interface{}{
		"type": "init",
		"config": map[string]string{
			"original_product_id": productID,
			"preorder_product_id": preorderProduct,
			"preorder_handle":     handle,
		},
		"quantity": "1",
	})
	send(map[string]interface{}{
		"type":       "variant:update",
		"product_id": productID,
		"variant":    map[string]interface{}{"id": "cli", "sku": sku, "available": true},
	})

	deadline := time.Now().Add(15 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var frame sessionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			fatal("Reading frame: %v", err)
		}

		switch frame.Type {
		case "control":
			fmt.Printf("%s◀ control%s %s%s%s %s\n", colorCyan, colorReset, colorBold, frame.State, colorReset, frame.Label)
			if frame.State == "ready" && submit {
				send(map[string]interface{}{"type": "submit", "activation_id": "preorderctl"})
				submit = false
			} else if frame.State == "ready" || frame.State == "unavailable" {
				return
			}
		case "price":
			fmt.Printf("%s◀ price%s %s%s%s\n", colorCyan, colorReset, colorGreen, frame.Formatted, colorReset)
		case "cart:added":
			printSuccess("Added to cart: %v", frame.Added["variant_id"])
			return
		case "cart:error":
			printError("%s", frame.Message)
			return
		case "error":
			fatal("Protocol error: %s", frame.Message)
		}
	}
	fatal("Session timed out")
}

// =============================================================================
// HEALTH COMMAND
// =============================================================================

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.StringVar(&serviceURL, "service", "http://localhost:8080", "Service base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - exit code only")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	resp, err := doRequest("GET", "/healthz", nil)
	if err != nil {
		fatal("Health check failed: %v", err)
	}
	printSuccess("Service healthy (shop %v)", resp["shop"])
}

// =============================================================================
// HTTP + OUTPUT HELPERS
// =============================================================================

func doRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	reqURL := serviceURL + path
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if verbose && !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if verbose && !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return result, nil
}

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(pretty.String())
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
