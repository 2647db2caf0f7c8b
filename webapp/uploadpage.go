package webapp

import (
	"fmt"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// UploadPage uploads a resume PDF with its score and shows the stored review
type UploadPage struct {
	app.Compo
	scoreInput string
	uploading  bool
	err        string
	result     *Review
}

// Render renders the upload page
func (p *UploadPage) Render() app.UI {
	preview, hasPreview := parseScore(p.scoreInput)

	return app.Div().
		Class("upload-page").
		Body(
			app.H2().Text("Upload Resume"),
			app.Div().Class("upload-form").Body(
				app.Label().For("pdf-input").Text("Resume (PDF)"),
				app.Input().
					Type("file").
					ID("pdf-input").
					Accept("application/pdf,.pdf"),
				app.Label().For("score-input").Text("Score"),
				app.Input().
					Type("number").
					ID("score-input").
					Attr("step", "0.1").
					Value(p.scoreInput).
					OnInput(p.onScoreInput),
				app.If(hasPreview, func() app.UI {
					return &ScoreBadge{Score: preview}
				}),
				app.Button().
					Class("btn btn-primary").
					Disabled(p.uploading).
					Text(uploadButtonLabel(p.uploading)).
					OnClick(p.onUpload),
			),
			app.If(p.err != "", func() app.UI {
				return app.Div().Class("error-message").Text(p.err)
			}),
			app.If(p.result != nil, func() app.UI {
				return p.renderResult()
			}),
		)
}

func (p *UploadPage) renderResult() app.UI {
	r := p.result
	return app.Div().
		Class("upload-result").
		Body(
			app.H3().Text(r.Name),
			&ScoreBadge{Score: r.Score},
			app.If(r.PreviewURL != "", func() app.UI {
				return app.Img().
					Class("review-preview").
					Src(BuildAPIURL(r.PreviewURL)).
					Alt(r.PreviewName)
			}),
			app.If(r.Error != "", func() app.UI {
				return app.P().Class("error-message").Text(r.Error)
			}),
			app.A().Href("/").Text("Back to reviews"),
		)
}

func (p *UploadPage) onScoreInput(ctx app.Context, e app.Event) {
	p.scoreInput = ctx.JSSrc().Get("value").String()
}

// onUpload posts the selected file and score as multipart form data
func (p *UploadPage) onUpload(ctx app.Context, e app.Event) {
	input := app.Window().GetElementByID("pdf-input")
	files := input.Get("files")
	if !files.Truthy() || files.Length() == 0 {
		p.err = "Please choose a PDF file"
		return
	}
	if _, ok := parseScore(p.scoreInput); !ok {
		p.err = "Please enter a numeric score"
		return
	}

	formData := app.Window().Get("FormData").New()
	formData.Call("append", "pdf", files.Index(0))
	formData.Call("append", "score", p.scoreInput)

	p.uploading = true
	p.err = ""
	p.result = nil

	options := map[string]any{
		"method": "POST",
		"body":   formData,
	}
	fetchJSON(ctx, BuildAPIURL("/api/reviews"), options, func(ctx app.Context, status int, body app.Value) {
		p.uploading = false
		if status != 201 {
			p.err = responseError(body, status)
			return
		}
		var review Review
		if err := decodeJSValue(body, &review); err != nil {
			p.err = "Failed to parse review: " + err.Error()
			return
		}
		p.result = &review
	})
}

// responseError pulls the error message out of an API error body
func responseError(body app.Value, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := decodeJSValue(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("Upload failed (status %d)", status)
}

// parseScore reports the score typed so far, if it is a number
func parseScore(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func uploadButtonLabel(uploading bool) string {
	if uploading {
		return "Uploading..."
	}
	return "Upload"
}
