package explorer

import (
	"github.com/google/uuid"

	"github.com/matzehuels/castgraph/pkg/errors"
	"github.com/matzehuels/castgraph/pkg/graph"
	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// =============================================================================
// Intents
// =============================================================================

// Intent is a user action handled by [Session.Run].
type Intent interface{ isIntent() }

// Expand fetches and merges the neighbours of a node.
type Expand struct{ ID graph.ID }

// QueryPath runs a shortest-path query by character name.
type QueryPath struct{ Start, End string }

// ClearPath removes the highlighted path.
type ClearPath struct{}

// ShowPathOnly restricts the display to the current path.
type ShowPathOnly struct{}

// ShowAll displays the whole graph.
type ShowAll struct{}

// Highlight forwards an intent to the selection controller.
type Highlight struct{ Intent selection.Intent }

// SetSizeMode switches the node-size function.
type SetSizeMode struct{ Mode layout.SizeMode }

// SetForces switches the force preset.
type SetForces struct{ Forces layout.Forces }

// Recenter moves the centering force.
type Recenter struct{ Center graph.Point }

// ResetView returns the highlight to its baseline and restarts the layout.
type ResetView struct{}

// DragStart pins a node where it is for the duration of a drag.
type DragStart struct{ ID graph.ID }

// DragMove moves the dragged node.
type DragMove struct {
	ID graph.ID
	To graph.Point
}

// DragEnd releases the dragged node.
type DragEnd struct{ ID graph.ID }

func (Expand) isIntent()       {}
func (QueryPath) isIntent()    {}
func (ClearPath) isIntent()    {}
func (ShowPathOnly) isIntent() {}
func (ShowAll) isIntent()      {}
func (Highlight) isIntent()    {}
func (SetSizeMode) isIntent()  {}
func (SetForces) isIntent()    {}
func (Recenter) isIntent()     {}
func (ResetView) isIntent()    {}
func (DragStart) isIntent()    {}
func (DragMove) isIntent()     {}
func (DragEnd) isIntent()      {}

// =============================================================================
// Events
// =============================================================================

// Event is a state-change notification.
type Event interface{ isEvent() }

// Merged reports a store merge. Result may be empty when the response held
// nothing new.
type Merged struct {
	Op     string
	Result graph.MergeResult
}

// Failed reports a failed operation. Core state is unchanged unless the
// error is PATH_NOT_FOUND or INVALID_PATH_QUERY, which clear the path.
type Failed struct {
	Op  string
	Err error
}

// Dismissible reports whether the failure is a notice rather than fatal.
func (f Failed) Dismissible() bool { return errors.Dismissible(f.Err) }

// PathChanged reports that the highlighted path was set or cleared.
type PathChanged struct {
	Query  uuid.UUID
	Active bool
	Length int
}

// ModeChanged reports a new highlight mode.
type ModeChanged struct{ Mode selection.Mode }

// Ticked reports that the layout or the particles advanced.
type Ticked struct{ Cooled bool }

func (Merged) isEvent()      {}
func (Failed) isEvent()      {}
func (PathChanged) isEvent() {}
func (ModeChanged) isEvent() {}
func (Ticked) isEvent()      {}
