package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaperSize(t *testing.T) {
	tests := []struct {
		in      string
		want    PaperSize
		wantErr bool
	}{
		{in: "", want: PaperSizeA4},
		{in: "a4", want: PaperSizeA4},
		{in: " letter ", want: PaperSizeLetter},
		{in: "thermal_80mm", want: PaperSizeThermal80},
		{in: "A3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaperSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintParams(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{})
	defer r.Close()

	t.Run("A4 portrait", func(t *testing.T) {
		params := r.printParams(&RenderRequest{HTML: "<p>x</p>", PaperSize: PaperSizeA4})

		assert.InDelta(t, mmToInches(210), params.PaperWidth, 0.001)
		assert.InDelta(t, mmToInches(297), params.PaperHeight, 0.001)
		assert.InDelta(t, mmToInches(15), params.MarginTop, 0.001, "zero margins take the paper default")
		assert.False(t, params.Landscape)
		assert.True(t, params.PrintBackground)
		assert.False(t, params.DisplayHeaderFooter)
		assert.InDelta(t, 1.0, params.Scale, 0.001)
	})

	t.Run("thermal roll is one tall page", func(t *testing.T) {
		params := r.printParams(&RenderRequest{HTML: "<p>x</p>", PaperSize: PaperSizeThermal80})

		assert.InDelta(t, mmToInches(80), params.PaperWidth, 0.001)
		assert.InDelta(t, mmToInches(rollPageHeightMM), params.PaperHeight, 0.001)
	})

	t.Run("footer reserves a bottom band", func(t *testing.T) {
		params := r.printParams(&RenderRequest{
			HTML:       "<p>x</p>",
			PaperSize:  PaperSizeLetter,
			Landscape:  true,
			Margins:    Margins{Top: 5, Right: 5, Bottom: 2, Left: 5},
			FooterHTML: receiptFooter,
		})

		assert.True(t, params.Landscape)
		assert.True(t, params.DisplayHeaderFooter)
		assert.Equal(t, receiptFooter, params.FooterTemplate)
		assert.InDelta(t, mmToInches(10), params.MarginBottom, 0.001)
	})
}

func TestChromedpRenderer_RejectsBadRequests(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{})
	defer r.Close()

	tests := []struct {
		name string
		req  *RenderRequest
		code string
	}{
		{name: "nil", req: nil, code: ErrCodeInvalidHTML},
		{name: "blank html", req: &RenderRequest{HTML: "  ", PaperSize: PaperSizeA4}, code: ErrCodeInvalidHTML},
		{name: "paper", req: &RenderRequest{HTML: "<p>x</p>", PaperSize: "B5"}, code: ErrCodeInvalidPaperSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)

			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, tt.code, renderErr.Code)
		})
	}
}

func TestWrapDocument(t *testing.T) {
	doc := wrapDocument(&RenderRequest{HTML: "<p>hola</p>", Title: "Recibo <1>"})
	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, "<title>Recibo &lt;1&gt;</title>")
	assert.Contains(t, doc, "<body><p>hola</p></body>")

	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, wrapDocument(&RenderRequest{HTML: full}))
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount(nil))
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
}

func TestRenderError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRenderError(ErrCodeRenderFailed, "render failed", cause)

	assert.Equal(t, "render failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no cause", NewRenderError(ErrCodeRenderFailed, "no cause", nil).Error())
}
