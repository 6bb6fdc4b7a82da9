package picker

import "strings"

// Action names mirror the mutation they perform. Any name starting with
// "delete", and "paste", mutates the query and therefore re-matches; every
// other recognized action leaves the match state alone.
const (
	ActionCaretLeft     = "caret_left"
	ActionCaretRight    = "caret_right"
	ActionChoose        = "choose"
	ActionChooseMarked  = "choose_marked"
	ActionDeleteChar    = "delete_char"
	ActionDeleteCharRt  = "delete_char_right"
	ActionDeleteWord    = "delete_word"
	ActionDeleteQuery   = "delete_query"
	ActionMark          = "mark"
	ActionMarkAll       = "mark_all"
	ActionMoveDown      = "move_down"
	ActionMoveUp        = "move_up"
	ActionMoveStart     = "move_start"
	ActionPaste         = "paste"
	ActionScrollDown    = "scroll_down"
	ActionScrollUp      = "scroll_up"
	ActionStop          = "stop"
	ActionToggleInfo    = "toggle_info"
	ActionTogglePreview = "toggle_preview"
)

// DefaultKeys maps bubbletea key names to actions. Keys absent from the map
// fall through to the default handler, which appends the key's character to
// the query.
func DefaultKeys() map[string]string {
	return map[string]string{
		"left":      ActionCaretLeft,
		"right":     ActionCaretRight,
		"enter":     ActionChoose,
		"alt+enter": ActionChooseMarked,
		"backspace": ActionDeleteChar,
		"delete":    ActionDeleteCharRt,
		"ctrl+w":    ActionDeleteWord,
		"ctrl+u":    ActionDeleteQuery,
		"ctrl+x":    ActionMark,
		"ctrl+a":    ActionMarkAll,
		"down":      ActionMoveDown,
		"ctrl+n":    ActionMoveDown,
		"up":        ActionMoveUp,
		"ctrl+p":    ActionMoveUp,
		"ctrl+g":    ActionMoveStart,
		"ctrl+v":    ActionPaste,
		"ctrl+f":    ActionScrollDown,
		"pgdown":    ActionScrollDown,
		"ctrl+b":    ActionScrollUp,
		"pgup":      ActionScrollUp,
		"esc":       ActionStop,
		"ctrl+c":    ActionStop,
		"tab":       ActionTogglePreview,
		"shift+tab": ActionToggleInfo,
	}
}

// mutatesQuery classifies actions that require a re-match.
func mutatesQuery(action string) bool {
	return strings.HasPrefix(action, "delete") || action == ActionPaste
}
