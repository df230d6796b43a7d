package statement

import "strings"

// noteNumberStart reserves numbers 1-2 for statement-level notes that are
// authored outside this engine.
const noteNumberStart = 3

// NoteChild is one supporting breakdown line inside a note.
type NoteChild struct {
	Name   string
	Amount float64
}

// Note is one generated supporting schedule.
type Note struct {
	Ref      string
	Number   int
	Label    string
	Children []NoteChild
	Total    float64
	Text     string
}

// AssignNotes walks the template in order and builds the note schedules for
// line items carrying a note reference. Numbers are assigned sequentially in
// encounter order starting at noteNumberStart; a reference seen again later
// reuses its number. A materially zero line with no manual text produces no
// note at all. Output is purely a function of the inputs.
func AssignNotes(blocks []Block, balances map[int64]float64, tree *Tree, manualTexts map[string]string) ([]Note, map[string]int) {
	notes := make([]Note, 0)
	numberByRef := make(map[string]int)
	next := noteNumberStart

	for _, block := range blocks {
		if block.Kind != BlockLineItem || block.NoteRef == "" {
			continue
		}
		value := balances[block.AccountHeadID]
		manual, hasManual := manualTexts[block.NoteRef]
		if materiallyZero(value) && !hasManual {
			continue
		}
		if _, seen := numberByRef[block.NoteRef]; seen {
			// Same schedule referenced from another statement row; it
			// keeps its first number and is not emitted twice.
			continue
		}
		numberByRef[block.NoteRef] = next
		next++

		var children []NoteChild
		for _, childID := range tree.Children[block.AccountHeadID] {
			childValue := balances[childID]
			if materiallyZero(childValue) {
				continue
			}
			child, ok := tree.Index[childID]
			if !ok {
				continue
			}
			children = append(children, NoteChild{Name: child.Name, Amount: childValue})
		}

		notes = append(notes, Note{
			Ref:      block.NoteRef,
			Number:   numberByRef[block.NoteRef],
			Label:    strings.TrimSpace(block.Label),
			Children: children,
			Total:    value,
			Text:     manual,
		})
	}
	return notes, numberByRef
}
