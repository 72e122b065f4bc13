package api

import (
	"fmt"
	"net/http"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
)

// OpRequest is the body of POST /api/documents/{id}/ops. Op selects the
// operation; the other fields are read as that operation needs them.
type OpRequest struct {
	Op string `json:"op"`

	Target    ir.Instance   `json:"target,omitzero"`
	Instances []ir.Instance `json:"instances,omitempty"`
	Nodes     []ir.NodeID   `json:"nodes,omitempty"`
	Position  ops.Position  `json:"position,omitempty"`
	Direction ops.Direction `json:"direction,omitempty"`
	AllEdges  bool          `json:"all_edges,omitempty"`

	Node     *NodeBody  `json:"node,omitempty"`
	Patch    *PatchBody `json:"patch,omitempty"`
	Template string     `json:"template,omitempty"`
	Import   []ir.Node  `json:"import,omitempty"`
}

// NodeBody describes a node to create.
type NodeBody struct {
	ID         ir.NodeID   `json:"id,omitempty"`
	Name       string      `json:"name"`
	TemplateID string      `json:"template_id,omitempty"`
	Data       ir.IRObject `json:"data,omitempty"`
	Starred    bool        `json:"starred,omitempty"`
}

// PatchBody is a partial node update.
type PatchBody struct {
	Name    *string     `json:"name,omitempty"`
	Data    ir.IRObject `json:"data,omitempty"`
	Unset   []string    `json:"unset,omitempty"`
	Starred *bool       `json:"starred,omitempty"`
}

func (b *NodeBody) spec() ops.NewNode {
	if b == nil {
		return ops.NewNode{}
	}
	return ops.NewNode{
		ID:         b.ID,
		Name:       b.Name,
		TemplateID: b.TemplateID,
		Data:       b.Data,
		IsStarred:  b.Starred,
	}
}

func (b *PatchBody) patch() ops.NodePatch {
	if b == nil {
		return ops.NodePatch{}
	}
	return ops.NodePatch{Name: b.Name, Data: b.Data, Unset: b.Unset, IsStarred: b.Starred}
}

func (s *Server) handleOp(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req OpRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cmd, err := apply(sess, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCommand(w, sess, cmd)
}

// apply runs one operation request against the session.
func apply(sess *engine.Session, req OpRequest) (*engine.Command, error) {
	pos := req.Position
	if pos == "" {
		pos = ops.PositionChild
	}
	switch req.Op {
	case "add-root":
		return sess.AddRoot(req.Node.spec())
	case "add-child":
		return sess.AddChild(req.Target, req.Node.spec())
	case "add-sibling":
		return sess.AddSibling(req.Target, req.Node.spec())
	case "move":
		if len(req.Instances) != 1 {
			return nil, badRequest{err: fmt.Errorf("move takes exactly one instance, got %d", len(req.Instances))}
		}
		return sess.Move(ops.MoveRequest{
			Node:     req.Instances[0],
			Target:   req.Target,
			Position: pos,
			AllEdges: req.AllEdges,
		})
	case "move-batch":
		return sess.MoveBatch(req.Instances, req.Target, pos)
	case "paste-clone":
		return sess.PasteAsClone(req.Target, pos, req.Nodes)
	case "duplicate":
		return sess.Duplicate(req.Target, pos, req.Nodes)
	case "import":
		return sess.Import(req.Target, pos, req.Import)
	case "delete":
		return sess.Delete(req.Instances...)
	case "reorder":
		if len(req.Instances) != 1 {
			return nil, badRequest{err: fmt.Errorf("reorder takes exactly one instance, got %d", len(req.Instances))}
		}
		return sess.MoveOrder(req.Instances[0], req.Direction)
	case "update":
		if len(req.Nodes) != 1 {
			return nil, badRequest{err: fmt.Errorf("update takes exactly one node, got %d", len(req.Nodes))}
		}
		return sess.Update(req.Nodes[0], req.Patch.patch())
	case "toggle-star":
		if len(req.Nodes) != 1 {
			return nil, badRequest{err: fmt.Errorf("toggle-star takes exactly one node, got %d", len(req.Nodes))}
		}
		return sess.ToggleStar(req.Nodes[0])
	case "change-template":
		return sess.ChangeTemplate(req.Nodes, req.Template)
	default:
		return nil, badRequest{err: fmt.Errorf("unknown op %q", req.Op)}
	}
}
