package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/queryir"
	"github.com/roach88/outliner/internal/syncer"
)

// RowView is one visible line of the outline.
type RowView struct {
	Instance    ir.Instance `json:"instance"`
	Node        ir.NodeID   `json:"node"`
	Name        string      `json:"name"`
	TemplateID  string      `json:"template_id,omitempty"`
	Depth       int         `json:"depth"`
	HasChildren bool        `json:"has_children"`
	Expanded    bool        `json:"expanded"`
	Selected    bool        `json:"selected"`
	Starred     bool        `json:"starred,omitempty"`
	Clone       bool        `json:"clone,omitempty"`
	Orphan      bool        `json:"orphan,omitempty"`
}

// CommandView reports an applied, undone or redone command.
type CommandView struct {
	Seq         int64         `json:"seq"`
	Kind        engine.Kind   `json:"kind"`
	Description string        `json:"description"`
	State       string        `json:"state"`
	Added       []ir.Instance `json:"added,omitempty"`
	Removed     []ir.Instance `json:"removed,omitempty"`
	Focus       *ir.Instance  `json:"focus,omitempty"`
	Changed     []ir.NodeID   `json:"changed"`
}

// CommandResponse answers every structural request. Noop is set when the
// request was valid but changed nothing.
type CommandResponse struct {
	Noop    bool                   `json:"noop"`
	Command *CommandView           `json:"command,omitempty"`
	History engine.HistorySnapshot `json:"history"`
}

func commandView(cmd *engine.Command) *CommandView {
	if cmd == nil {
		return nil
	}
	changed := make([]ir.NodeID, len(cmd.Changes.Changes))
	for i, c := range cmd.Changes.Changes {
		changed[i] = c.ID
	}
	return &CommandView{
		Seq:         cmd.Seq,
		Kind:        cmd.Kind,
		Description: cmd.Description,
		State:       cmd.State.String(),
		Added:       cmd.Added,
		Removed:     cmd.Removed,
		Focus:       cmd.Focus,
		Changed:     changed,
	}
}

func (s *Server) writeCommand(w http.ResponseWriter, sess *engine.Session, cmd *engine.Command) {
	writeJSON(w, http.StatusOK, CommandResponse{
		Noop:    cmd == nil,
		Command: commandView(cmd),
		History: sess.HistoryState(),
	})
}

// --- documents ---

type createDocumentRequest struct {
	Owner string `json:"owner"`
	Title string `json:"title"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ws.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []ir.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.ws.Create(r.Context(), req.Owner, req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateOpenGauge()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.dropPoller(id)
	if err := s.ws.Close(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateOpenGauge()
	w.WriteHeader(http.StatusNoContent)
}

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSetTitle(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req titleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SetTitle(req.Title); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Document())
}

// --- reads ---

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	rows := sess.Rows()
	if all {
		rows = sess.AllRows()
	}
	writeJSON(w, http.StatusOK, RowViews(sess, rows))
}

// RowViews describes rows with the session's expansion and selection.
func RowViews(sess *engine.Session, rows []graph.Row) []RowView {
	out := make([]RowView, len(rows))
	for i, row := range rows {
		out[i] = RowView{
			Instance:    row.Instance,
			Node:        row.Node.ID,
			Name:        row.Node.Name,
			TemplateID:  row.Node.TemplateID,
			Depth:       row.Depth,
			HasChildren: row.HasChildren,
			Expanded:    sess.IsExpanded(row.Instance),
			Selected:    sess.IsSelected(row.Instance),
			Starred:     row.Node.IsStarred,
			Clone:       row.Node.IsClone(),
			Orphan:      row.Orphan,
		}
	}
	return out
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := ir.NodeID(mux.Vars(r)["node"])
	if _, _, ok := sess.FindNodeAndParent(id); !ok {
		s.writeError(w, r, &ops.ValidationError{Code: ops.ErrCodeNodeNotFound, Message: "node does not exist", Node: id})
		return
	}
	paths := sess.InstancePaths(id)
	if paths == nil {
		paths = [][]ir.NodeID{}
	}
	writeJSON(w, http.StatusOK, paths)
}

// handleFind searches the open document: q uses the filter syntax of
// queryir.ParseFilter, limit caps the result.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := queryir.ParseFilter(r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			s.writeError(w, r, badRequest{err: fmt.Errorf("invalid limit %q", raw)})
			return
		}
	}
	nodes, err := sess.Find(filter, limit)
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// --- history ---

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.replay(w, r, (*engine.Session).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.replay(w, r, (*engine.Session).Redo)
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, fn func(*engine.Session) (*engine.Command, error)) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cmd, err := fn(sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCommand(w, sess, cmd)
}

// --- view state ---

type selectionRequest struct {
	Action    string        `json:"action"`
	Instances []ir.Instance `json:"instances"`
}

// SelectionResponse lists the selected instances after a change.
type SelectionResponse struct {
	Selected []ir.Instance `json:"selected"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch req.Action {
	case "select":
		sess.Select(req.Instances...)
	case "add":
		sess.AddToSelection(req.Instances...)
	case "toggle":
		for _, inst := range req.Instances {
			sess.ToggleSelected(inst)
		}
	case "range":
		if len(req.Instances) != 2 {
			s.writeError(w, r, badRequest{err: errors.New("range needs exactly two instances")})
			return
		}
		sess.SelectRange(req.Instances[0], req.Instances[1])
	case "clear":
		sess.ClearSelection()
	default:
		s.writeError(w, r, badRequest{err: fmt.Errorf("unknown selection action %q", req.Action)})
		return
	}
	selected := sess.Selected()
	if selected == nil {
		selected = []ir.Instance{}
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Selected: selected})
}

type expansionRequest struct {
	Action    string        `json:"action"`
	Instances []ir.Instance `json:"instances"`
}

func (s *Server) handleExpansion(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req expansionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch req.Action {
	case "expand":
		sess.Expand(req.Instances...)
	case "collapse":
		sess.Collapse(req.Instances...)
	case "toggle":
		for _, inst := range req.Instances {
			sess.ToggleExpanded(inst)
		}
	case "expand-all":
		sess.ExpandAll()
	case "collapse-all":
		sess.CollapseAll()
	default:
		s.writeError(w, r, badRequest{err: fmt.Errorf("unknown expansion action %q", req.Action)})
		return
	}
	writeJSON(w, http.StatusOK, sess.Document())
}

// --- clipboard ---

type clipboardRequest struct {
	Mode      string        `json:"mode"`
	Instances []ir.Instance `json:"instances"`
}

// ClipboardResponse describes what the clipboard holds.
type ClipboardResponse struct {
	Mode      string        `json:"mode"`
	Instances []ir.Instance `json:"instances"`
}

func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req clipboardRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	insts := req.Instances
	if len(insts) == 0 {
		insts = sess.Selected()
	}
	switch req.Mode {
	case "copy":
		err = sess.Copy(insts...)
	case "cut":
		err = sess.Cut(insts...)
	default:
		err = badRequest{err: fmt.Errorf("unknown clipboard mode %q", req.Mode)}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cb := sess.Clipboard()
	writeJSON(w, http.StatusOK, ClipboardResponse{Mode: cb.Mode.String(), Instances: cb.Instances})
}

type pasteRequest struct {
	Target   ir.Instance  `json:"target"`
	Position ops.Position `json:"position"`
	AsClone  bool         `json:"as_clone"`
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req pasteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Position == "" {
		req.Position = ops.PositionChild
	}
	var cmd *engine.Command
	if req.AsClone {
		cmd, err = sess.PasteClipboardAsClone(req.Target, req.Position)
	} else {
		cmd, err = sess.Paste(req.Target, req.Position)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCommand(w, sess, cmd)
}

// --- notices ---

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNotices(w, sess.Notices())
}

func (s *Server) handleDrainNotices(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNotices(w, sess.DrainNotices())
}

func writeNotices(w http.ResponseWriter, notices []engine.Notice) {
	if notices == nil {
		notices = []engine.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

// --- sync ---

// SyncResponse reports the outcome of a check and any pending conflict.
type SyncResponse struct {
	Outcome  syncer.Outcome   `json:"outcome,omitempty"`
	Conflict *syncer.Conflict `json:"conflict,omitempty"`
}

func (s *Server) syncPoller(w http.ResponseWriter, r *http.Request) (*syncer.Poller, bool) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	p, ok := s.poller(sess.ID())
	if !ok {
		s.writeError(w, r, engine.NewDocumentNotFound(sess.ID(), nil))
		return nil, false
	}
	return p, true
}

func syncResponse(p *syncer.Poller, outcome syncer.Outcome) SyncResponse {
	resp := SyncResponse{Outcome: outcome}
	if c, ok := p.Conflict(); ok {
		resp.Conflict = &c
	}
	return resp
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.syncPoller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, syncResponse(p, ""))
}

func (s *Server) handleSyncCheck(w http.ResponseWriter, r *http.Request) {
	p, ok := s.syncPoller(w, r)
	if !ok {
		return
	}
	outcome, err := p.Check(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse(p, outcome))
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (s *Server) handleSyncResolve(w http.ResponseWriter, r *http.Request) {
	p, ok := s.syncPoller(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := syncer.ParseResolution(req.Resolution)
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}
	if err := p.Resolve(r.Context(), res); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse(p, syncer.InSync))
}

// --- templates ---

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	out := []ir.Template{}
	if s.templates != nil {
		out = s.templates.All()
	}
	writeJSON(w, http.StatusOK, out)
}
