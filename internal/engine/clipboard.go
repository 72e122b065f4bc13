package engine

import "github.com/roach88/outliner/internal/ir"

// ClipboardMode says what Paste does with the clipboard.
type ClipboardMode int

const (
	// ClipboardCopy pastes deep copies; the clipboard survives the paste.
	ClipboardCopy ClipboardMode = iota
	// ClipboardCut moves the cut instances; the clipboard empties on paste.
	ClipboardCut
)

func (m ClipboardMode) String() string {
	if m == ClipboardCut {
		return "cut"
	}
	return "copy"
}

// Clipboard holds copied or cut instances. Cut keeps instance provenance so
// pasting removes exactly the edges that were cut, even for clones.
type Clipboard struct {
	Mode      ClipboardMode
	Instances []ir.Instance
}

// Empty reports whether nothing is held.
func (c Clipboard) Empty() bool {
	return len(c.Instances) == 0
}

// Nodes lists the distinct node ids held, in clipboard order.
func (c Clipboard) Nodes() []ir.NodeID {
	seen := make(map[ir.NodeID]bool, len(c.Instances))
	var out []ir.NodeID
	for _, inst := range c.Instances {
		if !seen[inst.Node] {
			seen[inst.Node] = true
			out = append(out, inst.Node)
		}
	}
	return out
}
