package template

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/outliner/internal/ir"
)

// FieldTypes lists the accepted field types. An omitted type is "string".
var FieldTypes = []string{"string", "int", "bool", "list", "object", "ref"}

// CompileError reports an invalid template with its source position.
type CompileError struct {
	Template string
	Field    string
	Message  string
	Pos      token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Template != "" {
		where = "template." + e.Template
		if e.Field != "" {
			where += "." + e.Field
		}
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// IsCompileError reports whether err contains a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return stderrors.As(err, &ce)
}

// CompileTemplate converts one template struct. The id is the struct's
// label.
func CompileTemplate(v cue.Value) (ir.Template, error) {
	if err := v.Err(); err != nil {
		return ir.Template{}, formatCUEError(err)
	}

	var t ir.Template
	if sels := v.Path().Selectors(); len(sels) > 0 {
		t.ID = labelOf(sels[len(sels)-1])
	}
	fail := func(field, msg string, pos token.Pos) (ir.Template, error) {
		return ir.Template{}, &CompileError{Template: t.ID, Field: field, Message: msg, Pos: pos}
	}
	if t.ID == "" {
		return fail("", "template id is required", v.Pos())
	}

	t.Name = t.ID
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return fail("name", "name must be a string", nameVal.Pos())
		}
		t.Name = name
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return fail("fields", "fields is required", v.Pos())
	}
	iter, err := fieldsVal.List()
	if err != nil {
		return fail("fields", "fields must be a list", fieldsVal.Pos())
	}
	ids := make(map[string]bool)
	names := make(map[string]bool)
	for i := 0; iter.Next(); i++ {
		f, err := compileField(t.ID, i, iter.Value())
		if err != nil {
			return ir.Template{}, err
		}
		if ids[f.ID] {
			return fail(fmt.Sprintf("fields[%d].id", i), fmt.Sprintf("duplicate field id %q", f.ID), iter.Value().Pos())
		}
		if names[f.Name] {
			return fail(fmt.Sprintf("fields[%d].name", i), fmt.Sprintf("duplicate field name %q", f.Name), iter.Value().Pos())
		}
		ids[f.ID] = true
		names[f.Name] = true
		t.Fields = append(t.Fields, f)
	}

	if titleVal := v.LookupPath(cue.ParsePath("title")); titleVal.Exists() {
		title, err := titleVal.String()
		if err != nil {
			return fail("title", "title must be a string", titleVal.Pos())
		}
		f, ok := t.FieldByID(title)
		if !ok {
			return fail("title", fmt.Sprintf("title names unknown field %q", title), titleVal.Pos())
		}
		if f.Type != "string" {
			return fail("title", fmt.Sprintf("title field %q must be a string field", title), titleVal.Pos())
		}
		t.TitleField = title
	}
	return t, nil
}

func labelOf(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func compileField(templateID string, i int, v cue.Value) (ir.Field, error) {
	path := fmt.Sprintf("fields[%d]", i)
	fail := func(field, msg string, pos token.Pos) (ir.Field, error) {
		return ir.Field{}, &CompileError{Template: templateID, Field: path + field, Message: msg, Pos: pos}
	}

	var f ir.Field
	for _, key := range []string{"id", "name"} {
		val := v.LookupPath(cue.ParsePath(key))
		if !val.Exists() {
			return fail("."+key, key+" is required", v.Pos())
		}
		s, err := val.String()
		if err != nil || s == "" {
			return fail("."+key, key+" must be a non-empty string", val.Pos())
		}
		if key == "id" {
			f.ID = s
		} else {
			f.Name = s
		}
	}

	f.Type = "string"
	if typeVal := v.LookupPath(cue.ParsePath("type")); typeVal.Exists() {
		s, err := typeVal.String()
		if err != nil {
			return fail(".type", "type must be a string", typeVal.Pos())
		}
		if !validType(s) {
			return fail(".type", fmt.Sprintf("unknown type %q (want one of %v)", s, FieldTypes), typeVal.Pos())
		}
		f.Type = s
	}
	return f, nil
}

func validType(s string) bool {
	for _, t := range FieldTypes {
		if t == s {
			return true
		}
	}
	return false
}

// CompileValue compiles every template under the value's "template" field,
// sorted by id. Invalid templates are skipped and reported together.
func CompileValue(v cue.Value) ([]ir.Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	root := v.LookupPath(cue.ParsePath("template"))
	if !root.Exists() {
		return nil, nil
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var (
		out  []ir.Template
		errs []error
	)
	for iter.Next() {
		t, err := CompileTemplate(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, stderrors.Join(errs...)
}

// CompileString compiles CUE source held in memory. filename is used in
// error positions.
func CompileString(src, filename string) ([]ir.Template, error) {
	ctx := cuecontext.New()
	return CompileValue(ctx.CompileString(src, cue.Filename(filename)))
}

// CompileDir loads the .cue files in dir as one instance and compiles its
// templates. The files may omit a package clause. A directory without .cue
// files yields no templates.
func CompileDir(dir string) ([]ir.Template, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates directory: %s is not a directory", dir)
	}
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Files are loaded by name so that sources without a package clause
	// build the same way CompileString does.
	for i, f := range files {
		if files[i], err = filepath.Abs(f); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
	}
	ctx := cuecontext.New()
	instances := load.Instances(files, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return CompileValue(ctx.BuildInstance(inst))
}

// FindCUEFiles lists the .cue files directly inside dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
