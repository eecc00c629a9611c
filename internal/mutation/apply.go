package mutation

import (
	"reflect"
	"slices"

	"github.com/trademate-dev/trademate/pkg/models"
)

func indexOf[E models.Entity[E]](items []E, id int64) int {
	return slices.IndexFunc(items, func(e E) bool { return e.EntityID() == id })
}

// applyOptimistic computes the optimistic collection. It never modifies
// items in place, so the prior snapshot stays intact for rollback.
// changed is false when the operation leaves the collection as it was.
func applyOptimistic[E models.Entity[E]](op Op, items []E, id int64, payload E, tempID int64) (out []E, changed bool) {
	switch op {
	case OpCreate:
		out = make([]E, 0, len(items)+1)
		out = append(out, items...)
		return append(out, payload.Provisional(tempID)), true
	case OpUpdate:
		if i := indexOf(items, id); i >= 0 {
			out = slices.Clone(items)
			out[i] = payload
			return out, true
		}
		// not cached: show it at the head rather than dropping the edit
		out = make([]E, 0, len(items)+1)
		out = append(out, payload)
		return append(out, items...), true
	case OpDelete:
		i := indexOf(items, id)
		if i < 0 {
			return items, false
		}
		return slices.Delete(slices.Clone(items), i, i+1), true
	}
	return items, false
}

// confirm swaps the server's authoritative record into the current
// collection after a successful write.
func confirm[E models.Entity[E]](op Op, items []E, id, tempID int64, result E) []E {
	switch op {
	case OpCreate:
		if i := indexOf(items, tempID); i >= 0 {
			out := slices.Clone(items)
			out[i] = result
			return out
		}
		if i := indexOf(items, result.EntityID()); i >= 0 {
			out := slices.Clone(items)
			out[i] = result
			return out
		}
		out := make([]E, 0, len(items)+1)
		out = append(out, items...)
		return append(out, result)
	case OpUpdate:
		if i := indexOf(items, id); i >= 0 {
			out := slices.Clone(items)
			out[i] = result
			return out
		}
		out := make([]E, 0, len(items)+1)
		out = append(out, result)
		return append(out, items...)
	case OpDelete:
		if i := indexOf(items, id); i >= 0 {
			return slices.Delete(slices.Clone(items), i, i+1)
		}
	}
	return items
}

// undo reverts only this mutation's own effect on a collection that other
// writes have touched since. written is the record the optimistic update
// stored, prior the record as it was before the mutation (found reports
// whether it existed) and priorIndex its position. A record another
// write has replaced since is left alone.
func undo[E models.Entity[E]](op Op, items []E, id, tempID int64, written, prior E, found bool, priorIndex int) []E {
	switch op {
	case OpCreate:
		if i := indexOf(items, tempID); i >= 0 {
			return slices.Delete(slices.Clone(items), i, i+1)
		}
	case OpUpdate:
		i := indexOf(items, id)
		if i < 0 || !reflect.DeepEqual(items[i], written) {
			return items
		}
		out := slices.Clone(items)
		if found {
			out[i] = prior
			return out
		}
		return slices.Delete(out, i, i+1)
	case OpDelete:
		if !found || indexOf(items, id) >= 0 {
			return items
		}
		at := min(priorIndex, len(items))
		out := make([]E, 0, len(items)+1)
		out = append(out, items[:at]...)
		out = append(out, prior)
		return append(out, items[at:]...)
	}
	return items
}
