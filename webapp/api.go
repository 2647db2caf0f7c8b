package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// GetAPIBaseURL returns the configured API base URL
// It reads from window.cvpreviewConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	config := app.Window().Get("cvpreviewConfig")
	if config.Truthy() {
		apiURL := config.Get("apiURL")
		if apiURL.Truthy() {
			return trimTrailingSlash(apiURL.String())
		}
	}

	// Fallback to relative URLs (same origin)
	return ""
}

// GetReviewPageSize returns how many reviews to request per page, 0 lets
// the server decide
func GetReviewPageSize() int {
	if !app.IsClient {
		return 0
	}
	config := app.Window().Get("cvpreviewConfig")
	if config.Truthy() {
		if size := config.Get("reviewPageSize"); size.Truthy() {
			return size.Int()
		}
	}
	return 0
}

// reviewsPath builds the review listing path for a page size
func reviewsPath(limit int) string {
	if limit <= 0 {
		return "/api/reviews"
	}
	return fmt.Sprintf("/api/reviews?limit=%d", limit)
}

func trimTrailingSlash(url string) string {
	if len(url) > 0 && url[len(url)-1] == '/' {
		return url[:len(url)-1]
	}
	return url
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/reviews") -> "http://backend:8000/api/reviews"
// or just "/api/reviews" if using relative URLs
func BuildAPIURL(path string) string {
	return joinAPIURL(GetAPIBaseURL(), path)
}

func joinAPIURL(baseURL, path string) string {
	if baseURL == "" {
		return path // Relative URL
	}
	return baseURL + path
}

// Review mirrors the review JSON returned by the API
type Review struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Category    string  `json:"category"`
	PreviewURL  string  `json:"previewUrl"`
	PreviewName string  `json:"previewName"`
	Excerpt     string  `json:"excerpt"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// decodeJSValue converts a JS value into out by round-tripping through JSON
func decodeJSValue(v app.Value, out any) error {
	if !v.Truthy() {
		return fmt.Errorf("empty response")
	}
	jsonStr := app.Window().Get("JSON").Call("stringify", v).String()
	return json.Unmarshal([]byte(jsonStr), out)
}

// fetchJSON calls fetch and hands the status and parsed body to done, on the
// UI goroutine. Network failures are reported with status 0.
func fetchJSON(ctx app.Context, url string, options map[string]any, done func(ctx app.Context, status int, body app.Value)) {
	ctx.Async(func() {
		var res app.Value
		if options == nil {
			res = app.Window().Call("fetch", url)
		} else {
			res = app.Window().Call("fetch", url, options)
		}

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]
			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				var body app.Value = app.Null()
				if len(args) > 0 {
					body = args[0]
				}
				ctx.Dispatch(func(ctx app.Context) {
					done(ctx, status, body)
				})
				return nil
			}))
			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				done(ctx, 0, app.Null())
			})
			return nil
		}))
	})
}
