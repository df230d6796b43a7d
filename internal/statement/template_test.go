package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	definition := []byte(`[
		{"type": "header_block", "text": "Balance Sheet"},
		{"type": "title", "text": "Assets"},
		{"type": "financial_line_item", "account_head_id": 2, "label": "Current Assets", "note_ref": "CA"},
		{"type": "subtotal", "id": 1000, "label": "Total Assets", "mandatory": true}
	]`)
	blocks, err := ParseTemplate(definition)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	assert.Equal(t, BlockHeader, blocks[0].Kind)
	assert.Equal(t, "Balance Sheet", blocks[0].Text)
	assert.Equal(t, BlockLineItem, blocks[2].Kind)
	assert.Equal(t, int64(2), blocks[2].AccountHeadID)
	assert.Equal(t, "CA", blocks[2].NoteRef)
	assert.Equal(t, BlockSubtotal, blocks[3].Kind)
	assert.Equal(t, int64(1000), blocks[3].SubtotalID)
	assert.True(t, blocks[3].Mandatory)
}

func TestParseTemplateRejectsUnknownType(t *testing.T) {
	_, err := ParseTemplate([]byte(`[{"type": "pie_chart", "label": "Mix"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestParseTemplateRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"header without text":    `[{"type": "header_block"}]`,
		"line item without head": `[{"type": "financial_line_item", "label": "Cash"}]`,
		"line item without label": `[{"type": "financial_line_item", "account_head_id": 4}]`,
		"subtotal without id":    `[{"type": "subtotal", "label": "Total"}]`,
	}
	for name, definition := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(definition))
			assert.Error(t, err)
		})
	}
}

func TestParseTemplateRejectsMalformedJSON(t *testing.T) {
	_, err := ParseTemplate([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestRenderable(t *testing.T) {
	assert.False(t, Renderable(0.009, false))
	assert.False(t, Renderable(-0.009, false))
	assert.True(t, Renderable(0.011, false))
	assert.True(t, Renderable(-0.011, false))
	assert.True(t, Renderable(0, true))
}
