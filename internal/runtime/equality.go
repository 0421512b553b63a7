package runtime

// visitPair tracks a pair of collection identities during recursive
// equality, guarding against reference cycles.
type visitPair struct {
	a, b any
}

// Equal performs structural equality between two values.
// Numbers, bools, strings and null compare by value (NaN is unequal
// to itself per IEEE-754); lists, tuples, arrays and dicts compare
// element-wise recursively with a cycle guard; ranges compare by
// start, end and step; functions and objects compare by identity.
func Equal(a, b Value) bool {
	return equalSeen(a, b, nil)
}

func equalSeen(a, b Value, seen []visitPair) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.Value == bv.Value
	case *Number:
		bv, ok := b.(*Number)
		// NaN != NaN falls out of the float comparison.
		return ok && av.Value == bv.Value
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false
		}
		return equalSlices(av.Elements, bv.Elements, av, bv, seen)
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok {
			return false
		}
		return equalSlices(av.Elements, bv.Elements, av, bv, seen)
	case *Array:
		bv, ok := b.(*Array)
		if !ok {
			return false
		}
		return equalSlices(av.Elements, bv.Elements, av, bv, seen)
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		if av.Len() != bv.Len() {
			return false
		}
		for _, pair := range seen {
			if pair.a == any(av) && pair.b == any(bv) {
				return true
			}
		}
		seen = append(seen, visitPair{a: av, b: bv})
		for _, k := range av.keys {
			bval, ok := bv.Get(k)
			if !ok || !equalSeen(av.items[k], bval, seen) {
				return false
			}
		}
		return true
	case *Range:
		bv, ok := b.(*Range)
		return ok && av.Start == bv.Start && av.End == bv.End && av.Step == bv.Step
	default:
		// Functions, builtins, objects, exceptions, tasks: identity.
		return a == b
	}
}

func equalSlices(as, bs []Value, aID, bID any, seen []visitPair) bool {
	if aID == bID {
		return true
	}
	if len(as) != len(bs) {
		return false
	}
	for _, pair := range seen {
		if pair.a == aID && pair.b == bID {
			return true
		}
	}
	seen = append(seen, visitPair{a: aID, b: bID})
	for i := range as {
		if !equalSeen(as[i], bs[i], seen) {
			return false
		}
	}
	return true
}
