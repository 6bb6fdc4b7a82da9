package diff

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Style names an annotation highlight group; the renderer decides what it
// looks like.
type Style string

const (
	StyleAdd        Style = "add"
	StyleChange     Style = "change"
	StyleDelete     Style = "delete"
	StyleAddText    Style = "add_text"
	StyleChangeText Style = "change_text"
	StyleDeleteText Style = "delete_text"
)

// Renderer paints annotations into a buffer view; the extmark-equivalent
// consumed interface. Implementations must be callable at any time and must
// not mutate engine state.
type Renderer interface {
	// HighlightLine marks a whole 1-based line, including end-of-line fill.
	HighlightLine(buf, line int, style Style, priority int)
	// HighlightRange marks byte columns [startCol, endCol) of a line.
	HighlightRange(buf, line, startCol, endCol int, style Style, priority int)
	// VirtualLines inserts annotation-only lines above a real line.
	VirtualLines(buf, line int, lines []VirtualLine, style Style)
	// Clear removes every annotation previously painted for a buffer.
	Clear(buf int)
}

// Source provides the reference-text lifecycle for a buffer.
type Source interface {
	// Attach starts providing reference text; failing to attach leaves the
	// buffer without a reference rather than failing the enable.
	Attach(b *Buffer) error
	// Detach releases anything Attach acquired.
	Detach(b *Buffer)
	// Refresh re-reads the reference and pushes it via b.SetRef.
	Refresh(b *Buffer)
	// ApplyHunks commits selected hunks back into the reference.
	ApplyHunks(b *Buffer, hunks []Hunk) error
}

// Annotation is one draw-table entry: a line-level hunk marker. Entries are
// registered in hunk order; overlapping entries resolve by priority.
type Annotation struct {
	Line     int
	Type     HunkType
	Style    Style
	Priority int
}

// Options configures an Engine.
type Options struct {
	// Debounce is the quiet window coalescing rapid edits. Default 200ms.
	Debounce time.Duration
	// OverlayGap merges intra-line diff fragments separated by at most this
	// many bytes. Default 4.
	OverlayGap int
	// Priorities orders overlapping draw annotations per hunk type.
	// Default: change > add > delete.
	Priorities map[HunkType]int
	// Timeout bounds a single diff computation; 0 means exact.
	Timeout time.Duration

	Logger *slog.Logger
}

func (o *Options) withDefaults() error {
	if o.Debounce == 0 {
		o.Debounce = 200 * time.Millisecond
	}
	if o.Debounce < 0 {
		return fmt.Errorf("diff: negative debounce %v", o.Debounce)
	}
	if o.OverlayGap == 0 {
		o.OverlayGap = 4
	}
	if o.OverlayGap < 0 {
		return fmt.Errorf("diff: negative overlay gap %d", o.OverlayGap)
	}
	if o.Priorities == nil {
		o.Priorities = map[HunkType]int{HunkChange: 3, HunkAdd: 2, HunkDelete: 1}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

// bufState is one enabled buffer's cache: reference text (or absence),
// current lines, computed hunks/summary, and the draw table consumed once
// per redraw.
type bufState struct {
	lines   []string
	ref     string
	hasRef  bool
	hunks   []Hunk
	summary Summary
	draw    map[int][]Annotation
	source  Source
	overlay bool
}

// Snapshot is the read-only view of one buffer's diff state.
type Snapshot struct {
	RefText string
	HasRef  bool
	Hunks   []Hunk
	Summary Summary
	Overlay bool
}

// Engine owns diff state for a set of buffers and schedules their updates.
type Engine struct {
	mu    sync.Mutex
	opts  Options
	bufs  map[int]*bufState
	sched *scheduler
}

// NewEngine validates options and creates an engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts: opts,
		bufs: make(map[int]*bufState),
	}
	e.sched = newScheduler(e.recomputeAll)
	return e, nil
}

// Buffer is the handle a Source uses to talk back to the engine about one
// buffer.
type Buffer struct {
	id int
	e  *Engine
}

// ID returns the buffer id.
func (b *Buffer) ID() int { return b.id }

// SetRef provides reference text; a recompute is scheduled immediately.
func (b *Buffer) SetRef(text string) { b.e.SetRef(b.id, text) }

// ClearRef drops the reference; hunks, summary and annotations clear.
func (b *Buffer) ClearRef() { b.e.ClearRef(b.id) }

// Lines returns a copy of the buffer's current lines.
func (b *Buffer) Lines() []string { return b.e.Lines(b.id) }

// Enable starts diffing buffer id with the given current lines. src may be
// nil for buffers whose reference is set explicitly.
func (e *Engine) Enable(id int, lines []string, src Source) error {
	e.mu.Lock()
	if _, ok := e.bufs[id]; ok {
		e.mu.Unlock()
		return fmt.Errorf("diff: buffer %d already enabled", id)
	}
	e.bufs[id] = &bufState{
		lines:  append([]string(nil), lines...),
		source: src,
		draw:   make(map[int][]Annotation),
	}
	e.mu.Unlock()

	// attach outside the lock: sources push reference text synchronously
	if src != nil {
		if err := src.Attach(&Buffer{id: id, e: e}); err != nil {
			// no reference is a degraded state, not a failure
			e.opts.Logger.Warn("diff source attach failed", "buf", id, "error", err)
		}
	}
	return nil
}

// Disable stops tracking a buffer, bypassing the debounce, and detaches its
// source.
func (e *Engine) Disable(id int) {
	e.mu.Lock()
	b, ok := e.bufs[id]
	if ok {
		delete(e.bufs, id)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	e.sched.drop(id)
	if b.source != nil {
		b.source.Detach(&Buffer{id: id, e: e})
	}
}

// Close disables scheduling; buffers stay readable.
func (e *Engine) Close() { e.sched.stop() }

// SetLines replaces a buffer's current text after an edit and schedules a
// debounced recompute.
func (e *Engine) SetLines(id int, lines []string) {
	e.mu.Lock()
	b, ok := e.bufs[id]
	if ok {
		b.lines = append([]string(nil), lines...)
	}
	e.mu.Unlock()
	if ok {
		e.sched.schedule(id, e.opts.Debounce)
	}
}

// Lines returns a copy of a buffer's current lines.
func (e *Engine) Lines(id int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.bufs[id]; ok {
		return append([]string(nil), b.lines...)
	}
	return nil
}

// SetRef sets reference text explicitly. A missing trailing newline is
// appended so end-of-file diffs stay well-formed.
func (e *Engine) SetRef(id int, text string) {
	e.mu.Lock()
	b, ok := e.bufs[id]
	if ok {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		b.ref = text
		b.hasRef = true
	}
	e.mu.Unlock()
	if ok {
		e.sched.schedule(id, 0)
	}
}

// ClearRef marks the reference absent; state degrades to empty.
func (e *Engine) ClearRef(id int) {
	e.mu.Lock()
	b, ok := e.bufs[id]
	if ok {
		b.ref = ""
		b.hasRef = false
	}
	e.mu.Unlock()
	if ok {
		e.sched.schedule(id, 0)
	}
}

// Refresh asks the buffer's source to re-read the reference, or schedules an
// immediate recompute when there is no source.
func (e *Engine) Refresh(id int) {
	e.mu.Lock()
	b, ok := e.bufs[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	if b.source != nil {
		b.source.Refresh(&Buffer{id: id, e: e})
		return
	}
	e.sched.schedule(id, 0)
}

// ToggleOverlay flips word-diff overlay rendering for a buffer and returns
// the new state.
func (e *Engine) ToggleOverlay(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return false
	}
	b.overlay = !b.overlay
	return b.overlay
}

// Snapshot returns the buffer's current diff state.
func (e *Engine) Snapshot(id int) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		RefText: b.ref,
		HasRef:  b.hasRef,
		Hunks:   append([]Hunk(nil), b.hunks...),
		Summary: b.summary,
		Overlay: b.overlay,
	}, true
}

// ApplyHunks commits the selected hunks into the reference, through the
// buffer's source when it has one.
func (e *Engine) ApplyHunks(id int, hunks []Hunk) error {
	e.mu.Lock()
	b, ok := e.bufs[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("diff: buffer %d not enabled", id)
	}
	if b.source != nil {
		return b.source.ApplyHunks(&Buffer{id: id, e: e}, hunks)
	}

	snap, _ := e.Snapshot(id)
	if !snap.HasRef {
		return fmt.Errorf("diff: buffer %d has no reference", id)
	}
	e.SetRef(id, ApplyHunks(snap.RefText, e.Lines(id), hunks))
	return nil
}

// recomputeAll is the scheduler's fire callback.
func (e *Engine) recomputeAll(ids []int) {
	sort.Ints(ids)
	for _, id := range ids {
		e.recompute(id)
	}
}

// recompute runs one synchronous, non-suspending diff for a buffer and
// rebuilds its summary and draw table.
func (e *Engine) recompute(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return
	}

	if !b.hasRef {
		b.hunks = nil
		b.summary = Summary{}
		b.draw = make(map[int][]Annotation)
		return
	}

	cur := ""
	if len(b.lines) > 0 {
		cur = strings.Join(b.lines, "\n") + "\n"
	}
	b.hunks = computeHunks(b.ref, cur, e.opts.Timeout)
	b.summary = Summarize(b.hunks)
	b.draw = e.buildDrawTable(b.hunks)
}

// buildDrawTable registers one annotation per hunk line. A zero-line delete
// hunk still marks the line below the deletion point, and overlapping hunks
// stack in registration order with the per-type priority deciding the
// visual winner.
func (e *Engine) buildDrawTable(hunks []Hunk) map[int][]Annotation {
	draw := make(map[int][]Annotation)
	for _, h := range hunks {
		start := max(h.CurStart, 1)
		count := max(h.CurCount, 1)
		for l := start; l < start+count; l++ {
			draw[l] = append(draw[l], Annotation{
				Line:     l,
				Type:     h.Type,
				Style:    styleFor(h.Type),
				Priority: e.opts.Priorities[h.Type],
			})
		}
	}
	return draw
}

func styleFor(t HunkType) Style {
	switch t {
	case HunkAdd:
		return StyleAdd
	case HunkDelete:
		return StyleDelete
	default:
		return StyleChange
	}
}

// RecomputeNow forces a synchronous recompute, bypassing the debounce;
// intended for tests and explicit refresh paths.
func (e *Engine) RecomputeNow(id int) {
	e.sched.drop(id)
	e.recompute(id)
}

// Redraw paints every buffer's pending annotations through r and clears the
// consumed draw tables. Renderer failures are swallowed: a stale redraw is
// strictly less harmful than a crash mid-edit.
func (e *Engine) Redraw(r Renderer) {
	e.mu.Lock()
	type job struct {
		id      int
		draw    map[int][]Annotation
		hunks   []Hunk
		lines   []string
		ref     string
		overlay bool
	}
	var jobs []job
	for id, b := range e.bufs {
		jobs = append(jobs, job{
			id:      id,
			draw:    b.draw,
			hunks:   append([]Hunk(nil), b.hunks...),
			lines:   append([]string(nil), b.lines...),
			ref:     b.ref,
			overlay: b.overlay,
		})
		b.draw = make(map[int][]Annotation) // consumed once per redraw
	}
	e.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].id < jobs[j].id })
	for _, j := range jobs {
		e.safeRender(j.id, func() {
			r.Clear(j.id)
			lines := sortedKeys(j.draw)
			for _, line := range lines {
				for _, a := range j.draw[line] {
					r.HighlightLine(j.id, a.Line, a.Style, a.Priority)
				}
			}
			if j.overlay {
				refLines := splitLines(j.ref)
				for _, h := range j.hunks {
					e.overlayHunk(r, j.id, refLines, j.lines, h)
				}
			}
		})
	}
}

// safeRender guards the boundary that touches external mutable state: a
// renderer confused by a concurrent buffer edit must not take the engine
// down.
func (e *Engine) safeRender(id int, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			e.opts.Logger.Warn("diff redraw failed", "buf", id, "panic", p)
		}
	}()
	fn()
}

func sortedKeys(m map[int][]Annotation) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
