package printing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperSize_Dimensions(t *testing.T) {
	w, h := PaperA4.Dimensions()
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 297.0, h)

	w, h = PaperReceipt80.Dimensions()
	assert.Equal(t, 80.0, w)
	assert.Zero(t, h)
	assert.True(t, PaperReceipt58.IsReceipt())
	assert.False(t, PaperA4.IsReceipt())
}

func TestBuildPrintParams(t *testing.T) {
	t.Run("A4 with margins", func(t *testing.T) {
		p := buildPrintParams(&RenderRequest{PaperSize: PaperA4, MarginMM: 10})
		assert.InDelta(t, 210/25.4, p.PaperWidth, 0.001)
		assert.InDelta(t, 297/25.4, p.PaperHeight, 0.001)
		assert.InDelta(t, 10/25.4, p.MarginTop, 0.001)
		assert.True(t, p.PrintBackground)
	})

	t.Run("receipt roll is one tall page", func(t *testing.T) {
		p := buildPrintParams(&RenderRequest{PaperSize: PaperReceipt80})
		assert.InDelta(t, 80/25.4, p.PaperWidth, 0.001)
		assert.InDelta(t, receiptRollHeightMM/25.4, p.PaperHeight, 0.001)
		assert.Zero(t, p.MarginLeft)
	})
}

func TestWrapHTML(t *testing.T) {
	doc := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, doc, wrapHTML(&RenderRequest{HTML: doc}))

	out := wrapHTML(&RenderRequest{HTML: "<p>bill</p>", Title: "A&B"})
	assert.Contains(t, out, "<title>A&amp;B</title>")
	assert.Contains(t, out, "<body><p>bill</p></body>")
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{RemoteURL: "ws://127.0.0.1:1"})
	defer r.Close()

	_, err := r.RenderPDF(context.Background(), "  ")
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
}
