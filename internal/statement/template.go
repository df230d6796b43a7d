package statement

import (
	"encoding/json"
	"fmt"
	"math"
)

// BlockKind enumerates the closed set of report template block types.
type BlockKind string

const (
	BlockHeader   BlockKind = "header_block"
	BlockTitle    BlockKind = "title"
	BlockLineItem BlockKind = "financial_line_item"
	BlockSubtotal BlockKind = "subtotal"
)

// Block is one typed element of a report template. The fields in use depend
// on Kind; ParseTemplate enforces the required ones per kind.
type Block struct {
	Kind          BlockKind
	Text          string // header_block, title
	AccountHeadID int64  // financial_line_item
	SubtotalID    int64  // subtotal: a synthetic metric id
	Label         string // financial_line_item, subtotal
	NoteRef       string // financial_line_item, optional
	Mandatory     bool   // render even when materially zero
}

// rawBlock mirrors the stored JSON shape of one template element.
type rawBlock struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	AccountHeadID int64  `json:"account_head_id"`
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	NoteRef       string `json:"note_ref"`
	Mandatory     bool   `json:"mandatory"`
}

// ParseTemplate decodes an ordered template definition, rejecting unknown or
// malformed block shapes up front instead of letting them surface as silent
// no-ops deep in rendering.
func ParseTemplate(data []byte) ([]Block, error) {
	var raws []rawBlock
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("statement: parse template: %w", err)
	}
	blocks := make([]Block, 0, len(raws))
	for idx, raw := range raws {
		block := Block{
			Kind:          BlockKind(raw.Type),
			Text:          raw.Text,
			AccountHeadID: raw.AccountHeadID,
			SubtotalID:    raw.ID,
			Label:         raw.Label,
			NoteRef:       raw.NoteRef,
			Mandatory:     raw.Mandatory,
		}
		switch block.Kind {
		case BlockHeader, BlockTitle:
			if raw.Text == "" {
				return nil, fmt.Errorf("statement: block %d (%s) missing text", idx, raw.Type)
			}
		case BlockLineItem:
			if raw.AccountHeadID == 0 {
				return nil, fmt.Errorf("statement: block %d missing account_head_id", idx)
			}
			if raw.Label == "" {
				return nil, fmt.Errorf("statement: block %d missing label", idx)
			}
		case BlockSubtotal:
			if raw.ID == 0 {
				return nil, fmt.Errorf("statement: block %d missing subtotal id", idx)
			}
			if raw.Label == "" {
				return nil, fmt.Errorf("statement: block %d missing label", idx)
			}
		default:
			return nil, fmt.Errorf("statement: block %d has unknown type %q", idx, raw.Type)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// materialityThreshold is the cutoff below which a figure is treated as zero
// for rendering and note purposes.
const materialityThreshold = 0.01

// materiallyZero reports whether the amount is below the rendering cutoff.
func materiallyZero(value float64) bool {
	return math.Abs(value) < materialityThreshold
}

// Renderable reports whether a statement row should render: materially
// non-zero values always do, and mandatory rows render regardless.
func Renderable(value float64, mandatory bool) bool {
	return mandatory || !materiallyZero(value)
}
